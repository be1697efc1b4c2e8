package auth

import (
	"fmt"

	"taskboard/sync-service/models"
)

// Action is a mutation attempt checked against the role policy.
type Action string

const (
	ActionCreateProject Action = "createProject"
	ActionRenameProject Action = "renameProject"
	ActionDeleteProject Action = "deleteProject"
	ActionAssignMembers Action = "assignMembers"
	ActionCreateUser    Action = "createUser"
	ActionDeleteUser    Action = "deleteUser"
	ActionCreateTask    Action = "createTask"
	ActionUpdateTask    Action = "updateTask"
	ActionDeleteTask    Action = "deleteTask"
)

// policy is the single authoritative role table. Every mutating entry point
// routes through Require before issuing a remote write. These checks are UX
// only: the document store's own access rules are the security boundary and
// must enforce the same table independently.
var policy = map[models.Role]map[Action]bool{
	models.RoleAdmin: {
		ActionCreateProject: true,
		ActionRenameProject: true,
		ActionDeleteProject: true,
		ActionAssignMembers: true,
		ActionCreateUser:    true,
		ActionDeleteUser:    true,
		ActionCreateTask:    true,
		ActionUpdateTask:    true,
		ActionDeleteTask:    true,
	},
	models.RoleMember: {
		ActionCreateTask: true,
		ActionUpdateTask: true,
		ActionDeleteTask: true,
	},
}

// Authorize is the pure allow/deny decision for a role attempting an action.
// Unknown roles and unknown actions deny.
func Authorize(role models.Role, action Action) bool {
	return policy[role][action]
}

// Require returns an AuthzError when the role may not perform the action.
func Require(role models.Role, action Action) error {
	if !Authorize(role, action) {
		return models.NewAuthzError(fmt.Sprintf("role %q is not allowed to %s", role, action))
	}
	return nil
}
