package audit

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/feral-file/ff-ledger/internal/domain"
	"github.com/feral-file/ff-ledger/internal/store/schema"
)

// ErrBrokenTrail is returned when an audit trail cannot be replayed
var ErrBrokenTrail = errors.New("broken audit trail")

// State is the status and owner of a token at some point of its history
type State struct {
	Status domain.TokenStatus `json:"status"`
	Owner  uuid.UUID          `json:"owner"`
}

// Replay reconstructs the sequence of states from records taken in the order of the token version they produced.
// The first record must be CREATE and every later record must start from the state the previous one produced.
func Replay(records []schema.AuditRecord) ([]State, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records", ErrBrokenTrail)
	}

	// Timestamps come from the writer's clock, versions from the swap that committed the record
	records = append([]schema.AuditRecord(nil), records...)
	sort.SliceStable(records, func(i, j int) bool { return records[i].TokenVersion < records[j].TokenVersion })

	states := make([]State, 0, len(records))
	var current State

	for i, r := range records {
		if i == 0 {
			if r.Operation != domain.AuditOperationCreate || r.NewStatus == nil || r.NewOwner == nil {
				return nil, fmt.Errorf("%w: first record %d is not a complete CREATE", ErrBrokenTrail, r.ID)
			}
			current = State{Status: *r.NewStatus, Owner: *r.NewOwner}
			states = append(states, current)
			continue
		}

		switch r.Operation {
		case domain.AuditOperationStatusChange:
			if r.OldStatus == nil || r.NewStatus == nil || *r.OldStatus != current.Status {
				return nil, fmt.Errorf("%w: record %d does not continue from status %s", ErrBrokenTrail, r.ID, current.Status)
			}
			current.Status = *r.NewStatus
		case domain.AuditOperationOwnershipTransfer:
			if r.OldOwner == nil || r.NewOwner == nil || *r.OldOwner != current.Owner {
				return nil, fmt.Errorf("%w: record %d does not continue from owner %s", ErrBrokenTrail, r.ID, current.Owner)
			}
			current.Owner = *r.NewOwner
		default:
			return nil, fmt.Errorf("%w: unexpected %s record %d", ErrBrokenTrail, r.Operation, r.ID)
		}
		states = append(states, current)
	}

	return states, nil
}

// Reconstruct returns the final state of the trail
func Reconstruct(records []schema.AuditRecord) (State, error) {
	states, err := Replay(records)
	if err != nil {
		return State{}, err
	}
	return states[len(states)-1], nil
}

// Matches reports whether the reconstructed state equals the token's current state
func (s State) Matches(token *schema.Token) bool {
	return token != nil && s.Status == token.Status && s.Owner == token.CurrentOwner
}
