// internal/domain/sales/attempt.go
package sales

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Phase is the state of a single commit attempt
type Phase string

const (
	PhaseValidating Phase = "validating"
	PhaseRejected   Phase = "rejected"
	PhaseCommitting Phase = "committing"
	PhaseCommitted  Phase = "committed"
	PhaseFailed     Phase = "failed"
)

var transitions = map[Phase][]Phase{
	PhaseValidating: {PhaseRejected, PhaseCommitting},
	PhaseCommitting: {PhaseRejected, PhaseCommitted, PhaseFailed},
}

// Terminal reports whether no further transition is possible
func (p Phase) Terminal() bool {
	return len(transitions[p]) == 0
}

// Attempt tracks one commit from validation to its terminal phase.
// A retry is a new Attempt.
type Attempt struct {
	ID        string
	Phase     Phase
	Lines     int
	StartedAt time.Time
	SaleID    uint
	Err       error

	log *logrus.Entry
}

func newAttempt(log *logrus.Logger, lines int) *Attempt {
	id := uuid.NewString()
	a := &Attempt{
		ID:        id,
		Phase:     PhaseValidating,
		Lines:     lines,
		StartedAt: time.Now(),
		log:       log.WithFields(logrus.Fields{"attempt_id": id, "lines": lines}),
	}
	a.log.Debug("sale commit validating")
	return a
}

func (a *Attempt) transition(to Phase) error {
	for _, allowed := range transitions[a.Phase] {
		if allowed == to {
			a.Phase = to
			return nil
		}
	}
	return fmt.Errorf("invalid attempt transition %s -> %s", a.Phase, to)
}

func (a *Attempt) committing() {
	if err := a.transition(PhaseCommitting); err != nil {
		a.log.WithError(err).Error("sale attempt state violation")
		return
	}
	a.log.Debug("sale commit committing")
}

func (a *Attempt) reject(err error) {
	a.Err = err
	if terr := a.transition(PhaseRejected); terr != nil {
		a.log.WithError(terr).Error("sale attempt state violation")
		return
	}
	a.log.WithFields(logrus.Fields{
		"reason":   codeOf(err),
		"duration": time.Since(a.StartedAt),
	}).Info("sale commit rejected")
}

func (a *Attempt) commit(saleID uint) {
	if err := a.transition(PhaseCommitted); err != nil {
		a.log.WithError(err).Error("sale attempt state violation")
		return
	}
	a.SaleID = saleID
	a.log.WithFields(logrus.Fields{
		"sale_id":  saleID,
		"duration": time.Since(a.StartedAt),
	}).Info("sale committed")
}

func (a *Attempt) fail(err error) {
	a.Err = err
	if terr := a.transition(PhaseFailed); terr != nil {
		a.log.WithError(terr).Error("sale attempt state violation")
		return
	}
	// Storage degraded: the one outcome that warrants operator attention.
	a.log.WithError(err).WithField("duration", time.Since(a.StartedAt)).Error("sale commit failed")
}

func codeOf(err error) string {
	if coded, ok := err.(interface{ Code() string }); ok {
		return coded.Code()
	}
	return "Unknown"
}
