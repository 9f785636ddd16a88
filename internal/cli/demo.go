package cli

import "time"

// Team and Member make up the demo graph: every member points back to its
// team, the lead is also listed among the members.
type Team struct {
	Name    string
	Lead    *Member
	Members []*Member
	Labels  map[string]string
	budget  int
}

// GetBudget is picked up as a getter.
func (t *Team) GetBudget() int { return t.budget }

// Size counts the members.
func (t *Team) Size() int { return len(t.Members) }

type Member struct {
	Name   string
	Email  string
	Team   *Team
	joined time.Time
}

// String is called as a debug method.
func (m *Member) String() string { return m.Name + " <" + m.Email + ">" }

// Joined is a bare-named getter backed by the unexported field.
func (m *Member) Joined() time.Time { return m.joined }

// DemoValue builds the self-referencing demo graph.
func DemoValue() *Team {
	t := &Team{
		Name:   "platform",
		Labels: map[string]string{"tier": "1", "oncall": "weekly"},
		budget: 120000,
	}
	ada := &Member{Name: "Ada", Email: "ada@example.com", Team: t, joined: time.Date(2021, 3, 1, 9, 0, 0, 0, time.UTC)}
	linus := &Member{Name: "Linus", Email: "linus@example.com", Team: t, joined: time.Date(2022, 7, 15, 9, 0, 0, 0, time.UTC)}
	t.Lead = ada
	t.Members = []*Member{ada, linus}
	return t
}
