package domain

import "testing"

func roster() []User {
	return []User{
		{ID: "u1", Name: "Mina", Group: "group-a", Role: RoleParticipant, TotalScore: 50},
		{ID: "u2", Name: "Mariam", Group: "group-b", Role: RoleParticipant, TotalScore: 50},
		{ID: "u3", Name: "Kirollos", Group: "group-a", Role: RoleParticipant, TotalScore: 30},
		{ID: "admin", Name: "Organizer", Group: "group-a", Role: RoleAdmin, TotalScore: 999},
	}
}

func TestRankIndividualsStableTieBreak(t *testing.T) {
	ranked := RankIndividuals(roster())

	if len(ranked) != 3 {
		t.Fatalf("expected 3 participants ranked, got %d", len(ranked))
	}
	// Tied users keep input order and still get distinct ranks.
	want := []struct {
		id   string
		rank int
	}{{"u1", 1}, {"u2", 2}, {"u3", 3}}
	for i, w := range want {
		if ranked[i].UserID != w.id || ranked[i].Rank != w.rank {
			t.Fatalf("position %d = (%s, %d), want (%s, %d)", i, ranked[i].UserID, ranked[i].Rank, w.id, w.rank)
		}
	}
}

func TestRankIndividualsExcludesAdmins(t *testing.T) {
	for _, entry := range RankIndividuals(roster()) {
		if entry.UserID == "admin" {
			t.Fatal("admin must not appear on the individual leaderboard")
		}
	}
}

func TestRankGroupsSumsParticipantsOnly(t *testing.T) {
	standings := RankGroups(roster())

	if len(standings) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(standings))
	}
	// group-a: 50+30=80 (admin's 999 excluded), group-b: 50.
	if standings[0].Name != "group-a" || standings[0].Score != 80 || standings[0].Rank != 1 {
		t.Fatalf("unexpected leading group: %+v", standings[0])
	}
	if standings[1].Name != "group-b" || standings[1].Score != 50 || standings[1].Rank != 2 {
		t.Fatalf("unexpected second group: %+v", standings[1])
	}
}

func TestRankGroupsOmitsEmptyGroups(t *testing.T) {
	users := []User{
		{ID: "a1", Group: "only-admins", Role: RoleAdmin, TotalScore: 10},
	}
	if standings := RankGroups(users); len(standings) != 0 {
		t.Fatalf("admin-only group must not be ranked, got %+v", standings)
	}
}

func TestRankGroupsStableTieBreak(t *testing.T) {
	users := []User{
		{ID: "u1", Group: "first", Role: RoleParticipant, TotalScore: 40},
		{ID: "u2", Group: "second", Role: RoleParticipant, TotalScore: 40},
	}
	standings := RankGroups(users)
	if standings[0].Name != "first" || standings[1].Name != "second" {
		t.Fatalf("tied groups must keep first-seen order, got %+v", standings)
	}
	if standings[0].Rank != 1 || standings[1].Rank != 2 {
		t.Fatalf("tied groups must get distinct ranks, got %+v", standings)
	}
}

func TestRankWithinGroup(t *testing.T) {
	ranked := RankWithinGroup(roster(), "group-a")

	if len(ranked) != 2 {
		t.Fatalf("expected 2 members of group-a, got %d", len(ranked))
	}
	if ranked[0].UserID != "u1" || ranked[0].Rank != 1 {
		t.Fatalf("unexpected group leader: %+v", ranked[0])
	}
	if ranked[1].UserID != "u3" || ranked[1].Rank != 2 {
		t.Fatalf("unexpected second member: %+v", ranked[1])
	}
}
