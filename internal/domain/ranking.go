package domain

import "sort"

// RankIndividuals orders participants by score, highest first, and assigns
// 1-based ranks. Ties keep their input order and still get distinct ranks;
// callers that need deterministic tie-breaks pass users in join order.
// Admins never appear on the board.
func RankIndividuals(users []User) []RankedUser {
	entries := make([]RankedUser, 0, len(users))
	for _, u := range users {
		if u.Role != RoleParticipant {
			continue
		}
		entries = append(entries, RankedUser{
			UserID: u.ID,
			Name:   u.Name,
			Group:  u.Group,
			Score:  u.TotalScore,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// RankWithinGroup is the individual ranking restricted to one group.
func RankWithinGroup(users []User, group string) []RankedUser {
	filtered := make([]User, 0, len(users))
	for _, u := range users {
		if u.Group == group {
			filtered = append(filtered, u)
		}
	}
	return RankIndividuals(filtered)
}

// RankGroups sums participant scores per group and ranks the sums, highest
// first. Admin scores never contribute, even when the admin's group matches
// a competing one. Groups without participants are absent; registry-only
// groups do not show up with zero.
func RankGroups(users []User) []GroupStanding {
	totals := make(map[string]int)
	order := make([]string, 0)
	for _, u := range users {
		if u.Role != RoleParticipant {
			continue
		}
		if _, seen := totals[u.Group]; !seen {
			order = append(order, u.Group)
		}
		totals[u.Group] += u.TotalScore
	}

	standings := make([]GroupStanding, 0, len(order))
	for _, name := range order {
		standings = append(standings, GroupStanding{Name: name, Score: totals[name]})
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Score > standings[j].Score
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings
}
