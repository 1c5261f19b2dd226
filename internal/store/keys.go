package store

import "strconv"

// Resource keys are slash separated paths relative to the store root.

func repoKey(repoID int64, kind string) string {
	return strconv.FormatInt(repoID, 10) + "/" + kind
}

func issueKey(repoID int64, issue int, kind string) string {
	return strconv.FormatInt(repoID, 10) + "/" + strconv.Itoa(issue) + "/" + kind
}

// IssueDataKey returns the key of an issue's GitHub data.
func IssueDataKey(repoID int64, issue int) string {
	return issueKey(repoID, issue, "issue-data")
}

// IssueEventsKey returns the key of an issue's ZenHub event list.
func IssueEventsKey(repoID int64, issue int) string {
	return issueKey(repoID, issue, "issue-events")
}

// BoardKey returns the key of a repository's ZenHub board.
func BoardKey(repoID int64) string {
	return repoKey(repoID, "zenhub-board")
}

// DependenciesKey returns the key of a repository's dependency list.
func DependenciesKey(repoID int64) string {
	return repoKey(repoID, "dependencies")
}

// EpicsKey returns the key of a repository's epic list.
func EpicsKey(repoID int64) string {
	return repoKey(repoID, "epics")
}

// EpicKey returns the key of a single epic's details.
func EpicKey(repoID int64, issue int) string {
	return issueKey(repoID, issue, "epic")
}
