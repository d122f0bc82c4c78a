package bot

import (
	"regexp"
	"strings"
)

// Mission records are posted by guild members in a fixed format and the
// catalog of known missions lives in a pinned message.
const (
	catalogMarker   = "Catálogo de misiones"
	completedMarker = "Estado: Completada"
	missionPrefix   = "Misión:"
)

var observationPattern = regexp.MustCompile(`(?i)observacion:\s*(.*)`)

// ParseCatalog extracts the mission names from a pinned catalog message.
// Every line starting with a dash is treated as one mission.
func ParseCatalog(content string) []string {
	if !strings.Contains(content, catalogMarker) {
		return nil
	}
	var missions []string
	for _, line := range strings.Split(content, "\n") {
		if !strings.HasPrefix(line, "-") {
			continue
		}
		mission := strings.TrimSpace(strings.TrimLeft(line, "- "))
		mission = strings.TrimSpace(strings.TrimPrefix(mission, missionPrefix))
		if mission != "" {
			missions = append(missions, mission)
		}
	}
	return missions
}

// CompletedMissions collects the missions a nick reported as completed.
// A message counts when it mentions the nick and carries the completed
// state marker.
func CompletedMissions(messages []string, nick string) map[string]bool {
	nickLower := strings.ToLower(nick)
	completed := make(map[string]bool)
	for _, msg := range messages {
		if !strings.Contains(strings.ToLower(msg), nickLower) || !strings.Contains(msg, completedMarker) {
			continue
		}
		for _, line := range strings.Split(msg, "\n") {
			if strings.HasPrefix(line, missionPrefix) {
				mission := strings.TrimSpace(strings.TrimPrefix(line, missionPrefix))
				if mission != "" {
					completed[mission] = true
				}
			}
		}
	}
	return completed
}

// PendingMissions returns the catalog entries not yet completed, in
// catalog order.
func PendingMissions(catalog []string, completed map[string]bool) []string {
	var pending []string
	for _, mission := range catalog {
		if !completed[mission] {
			pending = append(pending, mission)
		}
	}
	return pending
}

// CatalogMissionsCompleted marks the catalog entries mentioned in a
// nick's completed mission records.
func CatalogMissionsCompleted(messages []string, nick string, catalog []string) map[string]bool {
	nickLower := strings.ToLower(nick)
	completed := make(map[string]bool)
	for _, msg := range messages {
		lower := strings.ToLower(msg)
		if !strings.Contains(lower, nickLower) || !strings.Contains(msg, completedMarker) {
			continue
		}
		for _, mission := range catalog {
			if strings.Contains(lower, strings.ToLower(mission)) {
				completed[mission] = true
			}
		}
	}
	return completed
}

// CompletedCount counts the messages reporting a completed mission for
// the given nick.
func CompletedCount(messages []string, nick string) int {
	nickLower := strings.ToLower(nick)
	count := 0
	for _, msg := range messages {
		if strings.Contains(strings.ToLower(msg), nickLower) && strings.Contains(msg, completedMarker) {
			count++
		}
	}
	return count
}

// Observations extracts the observation lines from a nick's mission
// records.
func Observations(messages []string, nick string) []string {
	nickLower := strings.ToLower(nick)
	var observations []string
	for _, msg := range messages {
		lower := strings.ToLower(msg)
		if !strings.Contains(lower, "nick: "+nickLower) || !strings.Contains(lower, "observacion:") {
			continue
		}
		if match := observationPattern.FindStringSubmatch(msg); match != nil {
			if obs := strings.TrimSpace(match[1]); obs != "" {
				observations = append(observations, obs)
			}
		}
	}
	return observations
}
