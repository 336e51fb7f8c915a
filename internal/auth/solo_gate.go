package auth

import (
	"context"
	"regexp"

	"github.com/2beens/whole2swole/internal/forms"
	"github.com/2beens/whole2swole/internal/telemetry/metrics"
	"github.com/2beens/whole2swole/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
)

const MessageInvalidPIN = "PIN must be exactly 4 digits (like 1234)."

var pinRegex = regexp.MustCompile(`^\d{4}$`)

// ValidPIN reports whether pin is exactly four ASCII digits.
func ValidPIN(pin string) bool {
	return pinRegex.MatchString(pin)
}

//go:generate mockgen -source=$GOFILE -destination=solo_gate_mocks_test.go -package=auth_test

type PasswordSigner interface {
	SignInWithPassword(ctx context.Context, identity, secret string) error
}

// SoloGate signs the one fixed account in with a 4 digit PIN used as its password.
// Username is only displayed, Email is the identity the store knows.
type SoloGate struct {
	Username string
	Email    string

	signer  PasswordSigner
	metrics *metrics.Manager
}

func NewSoloGate(username, email string, signer PasswordSigner, metricsManager *metrics.Manager) *SoloGate {
	return &SoloGate{
		Username: username,
		Email:    email,
		signer:   signer,
		metrics:  metricsManager,
	}
}

// SignIn rejects a malformed PIN locally, otherwise it returns the store's error unchanged.
func (g *SoloGate) SignIn(ctx context.Context, pin string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "auth.solo_gate.sign_in")
	defer tracing.EndSpanWithErrCheck(span, &err)

	if !ValidPIN(pin) {
		g.count("rejected")
		return &forms.ValidationError{Message: MessageInvalidPIN}
	}

	if err := g.signer.SignInWithPassword(ctx, g.Email, pin); err != nil {
		log.Warnf("solo gate: sign in as %s: %s", g.Email, err)
		g.count("failed")
		return err
	}

	g.count("ok")
	return nil
}

func (g *SoloGate) count(outcome string) {
	if g.metrics == nil {
		return
	}
	g.metrics.CounterSignIns.WithLabelValues(outcome).Inc()
}
