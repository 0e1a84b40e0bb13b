// Package util formats the human-readable feed lines recorded as general
// events.
package util

import "strings"

// KillFeed renders a kill as "Killer shot down Victim [cause]". Crashes and
// kills without a known killer read differently.
func KillFeed(killer, victim, cause string, crashed bool) string {
	var b strings.Builder
	switch {
	case killer != "" && crashed:
		b.WriteString(killer)
		b.WriteString(" forced ")
		b.WriteString(victim)
		b.WriteString(" into the ground")
	case killer != "":
		b.WriteString(killer)
		b.WriteString(" shot down ")
		b.WriteString(victim)
	case crashed:
		b.WriteString(victim)
		b.WriteString(" crashed")
	default:
		b.WriteString(victim)
		b.WriteString(" was destroyed")
	}
	if cause != "" && !crashed {
		b.WriteString(" [")
		b.WriteString(cause)
		b.WriteByte(']')
	}
	return b.String()
}

// RosterFeed renders a pilot joining or leaving.
func RosterFeed(callsign, team string, joined bool) string {
	verb := " left"
	if joined {
		verb = " joined"
	}
	if team == "" {
		return callsign + verb
	}
	return callsign + verb + " " + team
}
