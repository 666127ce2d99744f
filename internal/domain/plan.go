package domain

import "fmt"

// Plan is a top-up package that adds a fixed number of credits.
type Plan struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Credits int    `json:"credits"`
}

func DefaultPlans() []Plan {
	return []Plan{
		{ID: "basic", Name: "Basic", Credits: 5},
		{ID: "advanced", Name: "Advanced", Credits: 15},
		{ID: "business", Name: "Business", Credits: 50},
	}
}

// ValidatePlans rejects empty catalogs, blank or duplicate ids and
// non-positive credit amounts.
func ValidatePlans(plans []Plan) error {
	if len(plans) == 0 {
		return fmt.Errorf("at least one top-up plan is required")
	}
	seen := make(map[string]bool, len(plans))
	for i, p := range plans {
		if p.ID == "" {
			return fmt.Errorf("plan[%d]: id is required", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate plan id %q", p.ID)
		}
		seen[p.ID] = true
		if p.Credits <= 0 {
			return fmt.Errorf("plan %q: credits must be positive", p.ID)
		}
	}
	return nil
}

// FindPlan looks a plan up by id.
func FindPlan(plans []Plan, id string) (Plan, bool) {
	for _, p := range plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}
