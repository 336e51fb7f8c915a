package forms

import (
	"context"
	"strings"
	"time"

	"github.com/2beens/whole2swole/internal/gymlog"
	"github.com/2beens/whole2swole/internal/store"
	"github.com/2beens/whole2swole/internal/telemetry/metrics"
	"github.com/2beens/whole2swole/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
)

const MessageEntrySaved = "Entry saved ✅"

type BodyStatForm struct {
	Date    string
	Weight  string
	BodyFat string
	Chest   string
	Waist   string
	Hips    string
	Arms    string
	Legs    string
	Notes   string
}

func NewBodyStatForm(today gymlog.Date) *BodyStatForm {
	return &BodyStatForm{Date: today.String()}
}

func BodyStatFormFrom(s gymlog.BodyStat) *BodyStatForm {
	return &BodyStatForm{
		Date:    s.Date.String(),
		Weight:  FormatNumber(s.Weight),
		BodyFat: FormatNumber(s.BodyFat),
		Chest:   FormatNumber(s.Measurements.Chest),
		Waist:   FormatNumber(s.Measurements.Waist),
		Hips:    FormatNumber(s.Measurements.Hips),
		Arms:    FormatNumber(s.Measurements.Arms),
		Legs:    FormatNumber(s.Measurements.Legs),
		Notes:   FormatString(s.Notes),
	}
}

// Build never rejects: every field is optional.
func (f *BodyStatForm) Build(today gymlog.Date) gymlog.BodyStatData {
	date, err := gymlog.ParseDate(strings.TrimSpace(f.Date))
	if err != nil {
		date = today
	}

	return gymlog.BodyStatData{
		Date:    date,
		Weight:  Number(f.Weight),
		BodyFat: Number(f.BodyFat),
		Measurements: gymlog.Measurements{
			Chest: Number(f.Chest),
			Waist: Number(f.Waist),
			Hips:  Number(f.Hips),
			Arms:  Number(f.Arms),
			Legs:  Number(f.Legs),
		},
		Notes: OptionalString(f.Notes),
	}
}

type BodyStatSubmitter struct {
	busyGuard
	saver   BodyStatSaver
	metrics *metrics.Manager
	now     func() time.Time
}

func NewBodyStatSubmitter(saver BodyStatSaver, metricsManager *metrics.Manager) *BodyStatSubmitter {
	return &BodyStatSubmitter{
		saver:   saver,
		metrics: metricsManager,
		now:     time.Now,
	}
}

func (s *BodyStatSubmitter) Submit(ctx context.Context, form *BodyStatForm, editing *gymlog.BodyStat) Result {
	if !s.acquire() {
		return Result{Status: StatusBusy, Message: MessageBusy}
	}
	defer s.release()

	ctx, span := tracing.GlobalTracer.Start(ctx, "forms.body_stat.submit")
	defer span.End()

	today := gymlog.DateOf(s.now())
	data := form.Build(today)

	var err error
	if editing != nil {
		err = s.saver.UpdateBodyStat(ctx, editing.ID, data)
	} else {
		err = s.saver.CreateBodyStat(ctx, data)
	}
	if err != nil {
		log.Errorf("save body stat: %s", err)
		countSave(s.metrics, "body_stat", StatusFailed)
		return Result{Status: StatusFailed, Message: store.MessageOf(err)}
	}

	countSave(s.metrics, "body_stat", StatusSaved)
	if editing != nil {
		return Result{Status: StatusSaved, Message: MessageChangesSaved}
	}

	*form = *NewBodyStatForm(today)
	return Result{Status: StatusSaved, Message: MessageEntrySaved}
}
