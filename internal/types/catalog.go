package types

import "github.com/google/uuid"

// Catalog is the evaluator-facing shape of a certifiable entity: its ordered
// completable units plus the metadata snapshotted onto certificates. For a
// course the units are its active lessons; for a live event, its sessions.
// Not a table; assembled by the catalog repos on demand.
type Catalog struct {
	Ref             EntityRef     `json:"ref"`
	Title           string        `json:"title"`
	InstructorName  string        `json:"instructor_name"`
	DurationMinutes int           `json:"duration_minutes"`
	Units           []CatalogUnit `json:"units"`
}

type CatalogUnit struct {
	ID           uuid.UUID `json:"id"`
	Kind         string    `json:"kind"`
	Title        string    `json:"title"`
	SectionIndex int       `json:"section_index"`
	Index        int       `json:"index"`
}

func (c *Catalog) UnitIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Units))
	for _, u := range c.Units {
		ids = append(ids, u.ID)
	}
	return ids
}
