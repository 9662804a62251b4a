package models

// Role is the permission level of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ProjectStatus marks a project as live or archived.
type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "active"
	ProjectArchived ProjectStatus = "archived"
)

// SprintStatus is the lifecycle state of a sprint.
type SprintStatus string

const (
	SprintPlanning  SprintStatus = "planning"
	SprintActive    SprintStatus = "active"
	SprintCompleted SprintStatus = "completed"
)

// Priority of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// TaskStatus is the board column a task sits in.
type TaskStatus string

const (
	TaskTodo        TaskStatus = "todo"
	TaskInProgress  TaskStatus = "inprogress"
	TaskCodeReview  TaskStatus = "codereview"
	TaskReadyToTest TaskStatus = "readytotest"
	TaskQA          TaskStatus = "qa"
	TaskDone        TaskStatus = "done"
)

// TaskStatuses enumerates the board columns in display order.
var TaskStatuses = []TaskStatus{TaskTodo, TaskInProgress, TaskCodeReview, TaskReadyToTest, TaskQA, TaskDone}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

func (s ProjectStatus) Valid() bool {
	return s == ProjectActive || s == ProjectArchived
}

func (s SprintStatus) Valid() bool {
	return s == SprintPlanning || s == SprintActive || s == SprintCompleted
}

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}
