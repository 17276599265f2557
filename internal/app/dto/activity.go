package dto

import (
	"time"

	"shutterbook/internal/app/policies"
)

type ActivityView struct {
	Action      string    `json:"action"`
	EntityKind  string    `json:"entity_kind"`
	EntityID    string    `json:"entity_id"`
	EntityLabel string    `json:"entity_label,omitempty"`
	Description string    `json:"description"`
	At          time.Time `json:"at"`
}

type ActivityCollection struct {
	Items []ActivityView `json:"items"`
}

func MapActivity(entries []policies.AuditEntry) ActivityCollection {
	out := ActivityCollection{Items: make([]ActivityView, 0, len(entries))}
	for _, e := range entries {
		out.Items = append(out.Items, ActivityView{
			Action:      e.Action,
			EntityKind:  e.EntityKind,
			EntityID:    e.EntityID,
			EntityLabel: e.EntityLabel,
			Description: e.Description,
			At:          e.At,
		})
	}
	return out
}
