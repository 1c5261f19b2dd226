package models

import (
	"fmt"
	"time"
)

// OwnerKind distinguishes GitHub organizations from users
type OwnerKind int

const (
	OwnerOrg OwnerKind = iota
	OwnerUser
)

func (k OwnerKind) String() string {
	if k == OwnerUser {
		return "USER"
	}
	return "ORG"
}

// Owner identifies a GitHub organization or user. Owners are compared by value.
type Owner struct {
	Kind OwnerKind
	Name string
}

// Org returns an organization owner
func Org(name string) Owner {
	return Owner{Kind: OwnerOrg, Name: name}
}

// User returns a user owner
func User(name string) Owner {
	return Owner{Kind: OwnerUser, Name: name}
}

func (o Owner) String() string {
	return fmt.Sprintf("%s - %s", o.Kind, o.Name)
}

// Estimate is a ZenHub story point estimate
type Estimate struct {
	Value float64 `json:"value"`
}

// PipelineRef names the pipeline an issue currently sits in
type PipelineRef struct {
	Name        string `json:"name"`
	PipelineID  string `json:"pipeline_id,omitempty"`
	WorkspaceID string `json:"workspace_id,omitempty"`
}

// BoardIssue is an issue entry inside a board pipeline
type BoardIssue struct {
	IssueNumber int       `json:"issue_number"`
	Estimate    *Estimate `json:"estimate,omitempty"`
	Position    int       `json:"position"`
	IsEpic      bool      `json:"is_epic"`
}

// Pipeline is a single column of a ZenHub board
type Pipeline struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Issues []BoardIssue `json:"issues"`
}

// Board is the ZenHub board of a repository
type Board struct {
	Pipelines []Pipeline `json:"pipelines"`
}

// IssueRef points at an issue in a (possibly different) repository
type IssueRef struct {
	IssueNumber int   `json:"issue_number"`
	RepoID      int64 `json:"repo_id"`
}

// Dependency records that Blocking must close before Blocked
type Dependency struct {
	Blocking IssueRef `json:"blocking"`
	Blocked  IssueRef `json:"blocked"`
}

// Dependencies is the dependency list of a repository
type Dependencies struct {
	Dependencies []Dependency `json:"dependencies"`
}

// EpicIssue is an entry of the repository epic list
type EpicIssue struct {
	IssueNumber int    `json:"issue_number"`
	RepoID      int64  `json:"repo_id"`
	IssueURL    string `json:"issue_url,omitempty"`
}

// Epics is the epic list of a repository
type Epics struct {
	EpicIssues []EpicIssue `json:"epic_issues"`
}

// EpicChild is an issue that belongs to an epic
type EpicChild struct {
	IssueNumber int           `json:"issue_number"`
	RepoID      int64         `json:"repo_id"`
	IsEpic      bool          `json:"is_epic"`
	Estimate    *Estimate     `json:"estimate,omitempty"`
	Pipeline    *PipelineRef  `json:"pipeline,omitempty"`
	Pipelines   []PipelineRef `json:"pipelines,omitempty"`
}

// Epic is the detail of a single epic issue
type Epic struct {
	TotalEpicEstimates *Estimate     `json:"total_epic_estimates,omitempty"`
	Estimate           *Estimate     `json:"estimate,omitempty"`
	Pipeline           *PipelineRef  `json:"pipeline,omitempty"`
	Pipelines          []PipelineRef `json:"pipelines,omitempty"`
	Issues             []EpicChild   `json:"issues"`
}

// PlusOne is a single +1 reaction recorded by ZenHub
type PlusOne struct {
	CreatedAt time.Time `json:"created_at"`
}

// IssueData is the ZenHub data attached to a single issue
type IssueData struct {
	Estimate  *Estimate     `json:"estimate,omitempty"`
	PlusOnes  []PlusOne     `json:"plus_ones"`
	Pipeline  *PipelineRef  `json:"pipeline,omitempty"`
	Pipelines []PipelineRef `json:"pipelines,omitempty"`
	IsEpic    bool          `json:"is_epic"`
}

// IssueEvent is one entry of the ZenHub event history of an issue
type IssueEvent struct {
	UserID       int64        `json:"user_id"`
	Type         string       `json:"type"`
	CreatedAt    time.Time    `json:"created_at"`
	FromEstimate *Estimate    `json:"from_estimate,omitempty"`
	ToEstimate   *Estimate    `json:"to_estimate,omitempty"`
	FromPipeline *PipelineRef `json:"from_pipeline,omitempty"`
	ToPipeline   *PipelineRef `json:"to_pipeline,omitempty"`
}

// RepositoryChangeEvent records that the board, dependencies or epics of a
// repository differed from the previously stored snapshot.
type RepositoryChangeEvent struct {
	RepoID int64  `json:"repoId"`
	Time   int64  `json:"time"` // unix milliseconds
	UUID   string `json:"uuid"`
}
