package workflow

import "cmcs-backend/internal/models"

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Stage is one approval step. Each stage is owned by a single role.
type Stage struct {
	Name string
	Role models.UserRole
	From models.ClaimStatus
	// Title names the approver in default notes.
	Title string
}

var (
	CoordinatorStage = Stage{Name: "coordinator", Role: models.RoleCoordinator, From: models.StatusPending, Title: "Coordinator"}
	ManagerStage     = Stage{Name: "manager", Role: models.RoleManager, From: models.StatusApprovedByCoordinator, Title: "Academic Manager"}
)

type rule struct {
	role models.UserRole
	to   models.ClaimStatus
}

type edge struct {
	from   models.ClaimStatus
	action Action
}

// transitions is the complete table; any pair not listed is invalid.
var transitions = map[edge]rule{
	{models.StatusPending, ActionApprove}:               {models.RoleCoordinator, models.StatusApprovedByCoordinator},
	{models.StatusPending, ActionReject}:                {models.RoleCoordinator, models.StatusRejected},
	{models.StatusApprovedByCoordinator, ActionApprove}: {models.RoleManager, models.StatusApproved},
	{models.StatusApprovedByCoordinator, ActionReject}:  {models.RoleManager, models.StatusRejected},
}

// Next returns the target status and the role allowed to apply action to a
// claim in status from.
func Next(from models.ClaimStatus, action Action) (models.ClaimStatus, models.UserRole, bool) {
	r, ok := transitions[edge{from, action}]
	return r.to, r.role, ok
}

func defaultApproveNote(stage Stage) string {
	return "Approved by " + stage.Title
}

const submittedNote = "Claim submitted"
