// Package stats records match events while an occurrence is live and derives
// per-player totals when it closes.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"matchday-backend/internal/ledger"
	"matchday-backend/internal/model"
)

// Recorder drives the scheduled → live → closed lifecycle.
type Recorder struct {
	ledger *ledger.Ledger
	now    func() time.Time
}

// NewRecorder creates a Recorder.
func NewRecorder(l *ledger.Ledger) *Recorder {
	return &Recorder{ledger: l, now: func() time.Time { return time.Now().UTC() }}
}

// Start moves a scheduled occurrence to live.
func (r *Recorder) Start(ctx context.Context, key model.OccurrenceKey) (*model.Occurrence, error) {
	occ, err := r.ledger.Update(ctx, key, func(occ *model.Occurrence) (bool, error) {
		if occ.Status != model.StatusScheduled {
			return false, fmt.Errorf("%w: cannot start %s while %s", ledger.ErrInvalidState, key, occ.Status)
		}
		occ.Status = model.StatusLive
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("stats: %s is live", key)
	return occ, nil
}

// RecordEvent appends a goal or assist. Stats are not touched until Close.
func (r *Recorder) RecordEvent(ctx context.Context, key model.OccurrenceKey, participantID string, kind model.EventKind) (*model.Event, error) {
	if participantID == "" || !kind.Valid() {
		return nil, fmt.Errorf("%w: participant %q kind %q", ledger.ErrInvalidEvent, participantID, kind)
	}

	event := model.Event{
		ID:            uuid.NewString(),
		ParticipantID: participantID,
		Kind:          kind,
		At:            r.now(),
	}
	_, err := r.ledger.Update(ctx, key, func(occ *model.Occurrence) (bool, error) {
		if occ.Status != model.StatusLive {
			return false, fmt.Errorf("%w: cannot record events on %s while %s", ledger.ErrInvalidState, key, occ.Status)
		}
		occ.Events = append(occ.Events, event)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Close folds every recorded event into stats and moves the occurrence from
// live to closed. On an occurrence that is already closed it writes nothing
// and returns the stored record with closed == false.
func (r *Recorder) Close(ctx context.Context, key model.OccurrenceKey) (occ *model.Occurrence, closed bool, err error) {
	occ, err = r.ledger.Update(ctx, key, func(occ *model.Occurrence) (bool, error) {
		switch occ.Status {
		case model.StatusClosed:
			closed = false
			return false, nil
		case model.StatusLive:
		default:
			return false, fmt.Errorf("%w: cannot close %s while %s", ledger.ErrInvalidState, key, occ.Status)
		}
		occ.Stats = datatypes.NewJSONType(Fold(occ.Events))
		occ.Status = model.StatusClosed
		closed = true
		return true, nil
	})
	if err != nil {
		return nil, false, err
	}
	if closed {
		logger.Infof("stats: %s closed with %d events", key, len(occ.Events))
	}
	return occ, closed, nil
}

// Fold counts goals and assists per participant.
func Fold(events []model.Event) map[string]model.PlayerStats {
	totals := make(map[string]model.PlayerStats)
	for _, e := range events {
		s := totals[e.ParticipantID]
		switch e.Kind {
		case model.EventGoal:
			s.Goals++
		case model.EventAssist:
			s.Assists++
		default:
			continue
		}
		totals[e.ParticipantID] = s
	}
	return totals
}
