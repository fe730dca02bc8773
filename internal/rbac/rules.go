// Package rbac decides which API operations a role may call. Ownership of
// exams and attempts is checked by the engine and catalog, not here.
package rbac

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

type Perm string

const (
	PermExamView      Perm = "exam:view"
	PermExamCreate    Perm = "exam:create"
	PermExamUpdateOwn Perm = "exam:update_own"
	PermExamDeleteOwn Perm = "exam:delete_own"

	PermAttemptCreate  Perm = "attempt:create"
	PermAttemptSave    Perm = "attempt:save"
	PermAttemptSubmit  Perm = "attempt:submit"
	PermAttemptViewOwn Perm = "attempt:view-own"
	PermAttemptViewAll Perm = "attempt:view-all"

	PermEventsRead Perm = "events:read"

	// PermAll grants every permission.
	PermAll Perm = "*"
)

var RolePermissions = map[Role][]Perm{
	RoleStudent: {
		PermExamView,
		PermAttemptCreate,
		PermAttemptSave,
		PermAttemptSubmit,
		PermAttemptViewOwn,
	},
	RoleTeacher: {
		PermExamView,
		PermExamCreate,
		PermExamUpdateOwn,
		PermExamDeleteOwn,
		PermAttemptViewAll,
	},
	RoleAdmin: {PermAll},
}
