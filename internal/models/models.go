package models

import "time"

// Entity is implemented by every persisted document.
type Entity interface {
	EntityID() string
	SetEntityID(id string)
}

// Timestamps carries creation and modification times of a document.
type Timestamps struct {
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Touch refreshes UpdatedAt and fills CreatedAt on first write.
func (t *Timestamps) Touch(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}

// Preferences holds per-user UI settings.
type Preferences struct {
	Theme         string `json:"theme" bson:"theme"`
	Language      string `json:"language" bson:"language"`
	NotifyEnabled bool   `json:"notifyEnabled" bson:"notifyEnabled"`
}

// DefaultPreferences is applied to newly registered users.
func DefaultPreferences() Preferences {
	return Preferences{Theme: "light", Language: "en", NotifyEnabled: true}
}

// User is an account that can own projects and be assigned tasks.
type User struct {
	ID           string      `json:"id" bson:"_id"`
	Email        string      `json:"email" bson:"email"`
	PasswordHash string      `json:"passwordHash,omitempty" bson:"passwordHash"`
	Username     string      `json:"username,omitempty" bson:"username,omitempty"`
	Role         Role        `json:"role" bson:"role"`
	ProjectIDs   []string    `json:"projectIds" bson:"projectIds"`
	TaskIDs      []string    `json:"taskIds" bson:"taskIds"`
	LastLogin    *time.Time  `json:"lastLogin,omitempty" bson:"lastLogin,omitempty"`
	Preferences  Preferences `json:"preferences" bson:"preferences"`
	Timestamps   `bson:",inline"`
}

// Public returns a copy safe to hand to API clients.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

// Status is a named board state with a display order.
type Status struct {
	ID          string `json:"id" bson:"_id"`
	Name        string `json:"name" bson:"name"`
	Description string `json:"description" bson:"description"`
	Color       string `json:"color" bson:"color"`
	Order       int    `json:"order" bson:"order"`
	IsDefault   bool   `json:"isDefault" bson:"isDefault"`
}

// Workflow is a named, ordered list of status names. The names are not
// checked against the statuses collection.
type Workflow struct {
	ID       string   `json:"id" bson:"_id"`
	Name     string   `json:"name" bson:"name"`
	Statuses []string `json:"statuses" bson:"statuses"`
}

// Project groups members, sprints and a backlog of tasks.
type Project struct {
	ID             string         `json:"id" bson:"_id"`
	Name           string         `json:"name" bson:"name"`
	Description    string         `json:"description" bson:"description"`
	OwnerID        string         `json:"ownerId" bson:"ownerId"`
	MemberIDs      []string       `json:"memberIds" bson:"memberIds"`
	SprintIDs      []string       `json:"sprintIds" bson:"sprintIds"`
	BacklogTaskIDs []string       `json:"backlogTaskIds" bson:"backlogTaskIds"`
	WorkflowID     string         `json:"workflowId,omitempty" bson:"workflowId,omitempty"`
	Status         ProjectStatus  `json:"status" bson:"status"`
	CustomFields   map[string]any `json:"customFields,omitempty" bson:"customFields,omitempty"`
	Timestamps     `bson:",inline"`
}

// Sprint is a time box of a single project with an ordered task list.
type Sprint struct {
	ID         string       `json:"id" bson:"_id"`
	Name       string       `json:"name" bson:"name"`
	StartDate  time.Time    `json:"startDate" bson:"startDate"`
	EndDate    time.Time    `json:"endDate" bson:"endDate"`
	TaskIDs    []string     `json:"taskIds" bson:"taskIds"`
	ProjectID  string       `json:"projectId" bson:"projectId"`
	Status     SprintStatus `json:"status" bson:"status"`
	Goal       string       `json:"goal" bson:"goal"`
	Timestamps `bson:",inline"`
}

// Attachment is a named link stored on a task.
type Attachment struct {
	Name string `json:"name" bson:"name"`
	URL  string `json:"url" bson:"url"`
}

// Comment is a note left on a task.
type Comment struct {
	Text      string    `json:"text" bson:"text"`
	AuthorID  string    `json:"authorId" bson:"authorId"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Task is a card on the board.
type Task struct {
	ID           string         `json:"id" bson:"_id"`
	Title        string         `json:"title" bson:"title"`
	Description  string         `json:"description" bson:"description"`
	Points       int            `json:"points" bson:"points"`
	Priority     Priority       `json:"priority" bson:"priority"`
	Status       TaskStatus     `json:"status" bson:"status"`
	TimeSpent    float64        `json:"timeSpent" bson:"timeSpent"`
	Attachments  []Attachment   `json:"attachments" bson:"attachments"`
	Comments     []Comment      `json:"comments" bson:"comments"`
	AssignedToID string         `json:"assignedToId,omitempty" bson:"assignedToId,omitempty"`
	ProjectID    string         `json:"projectId" bson:"projectId"`
	SprintID     string         `json:"sprintId,omitempty" bson:"sprintId,omitempty"`
	Order        float64        `json:"order" bson:"order"`
	DueDate      *time.Time     `json:"dueDate,omitempty" bson:"dueDate,omitempty"`
	CustomFields map[string]any `json:"customFields,omitempty" bson:"customFields,omitempty"`
	Timestamps   `bson:",inline"`
}

func (u *User) EntityID() string          { return u.ID }
func (u *User) SetEntityID(id string)     { u.ID = id }
func (s *Status) EntityID() string        { return s.ID }
func (s *Status) SetEntityID(id string)   { s.ID = id }
func (w *Workflow) EntityID() string      { return w.ID }
func (w *Workflow) SetEntityID(id string) { w.ID = id }
func (p *Project) EntityID() string       { return p.ID }
func (p *Project) SetEntityID(id string)  { p.ID = id }
func (s *Sprint) EntityID() string        { return s.ID }
func (s *Sprint) SetEntityID(id string)   { s.ID = id }
func (t *Task) EntityID() string          { return t.ID }
func (t *Task) SetEntityID(id string)     { t.ID = id }
