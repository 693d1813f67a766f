// Package fanout implements the Fan-out Resolver: given a channel's member
// snapshot and a message's source language, it computes the distinct set of
// target languages the Pipeline Orchestrator must translate into. It is a
// pure function — no I/O, no clock reads — over snapshots the caller
// captures at translate time, since membership/preference changes must not
// retroactively affect already-dispatched messages.
package fanout

import "github.com/amityvox/amityvox/internal/models"

// MemberSnapshot pairs a user ID with the language preference captured at
// the moment a message is translated.
type MemberSnapshot struct {
	UserID          string
	PrimaryLanguage string
}

// Resolve computes targetLanguages = {primaryLanguage of each member} \
// {sourceLanguage}, deduplicated. Order is unspecified; callers that need a
// stable order should sort the result themselves.
func Resolve(members []MemberSnapshot, sourceLanguage string) []string {
	seen := make(map[string]bool, len(members))
	out := make([]string, 0, len(members))
	for _, m := range members {
		if m.PrimaryLanguage == "" || m.PrimaryLanguage == sourceLanguage {
			continue
		}
		if seen[m.PrimaryLanguage] {
			continue
		}
		seen[m.PrimaryLanguage] = true
		out = append(out, m.PrimaryLanguage)
	}
	return out
}

// ResolveForThread computes fan-out targets for a DM thread, whose
// membership is always exactly its two participants. Per spec, the sender's
// own language is unconditionally excluded even if a participant snapshot
// carries it for the other party too.
func ResolveForThread(thread *models.Thread, languages map[string]string, sourceLanguage string) []string {
	members := make([]MemberSnapshot, 0, len(thread.Participants))
	for _, userID := range thread.Participants {
		members = append(members, MemberSnapshot{UserID: userID, PrimaryLanguage: languages[userID]})
	}
	return Resolve(members, sourceLanguage)
}

// ResolveForCommunityChannel computes fan-out targets for a standard
// community channel, whose membership is the owning community's member set.
func ResolveForCommunityChannel(community *models.Community, languages map[string]string, sourceLanguage string) []string {
	members := make([]MemberSnapshot, 0, len(community.Members))
	for _, userID := range community.Members {
		members = append(members, MemberSnapshot{UserID: userID, PrimaryLanguage: languages[userID]})
	}
	return Resolve(members, sourceLanguage)
}
