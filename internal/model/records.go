package model

// Identified is implemented by every record a list view can delete.
type Identified interface {
	Key() string
}

// Lead is a contact captured by the assistant.
type Lead struct {
	ID        string `json:"id"`
	Name      string `json:"nombre"`
	Company   string `json:"empresa"`
	Interest  string `json:"interes"`
	Email     string `json:"correo"`
	Phone     string `json:"telefono"`
	Message   string `json:"mensaje"`
	CreatedAt string `json:"created_at"`
}

func (l Lead) Key() string { return l.ID }

// Registration is a course sign-up.
type Registration struct {
	ID          string `json:"id"`
	StudentName string `json:"student_name"`
	Email       string `json:"email"`
	CourseName  string `json:"course_name"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

func (r Registration) Key() string { return r.ID }

// Report is a citizen incident ticket.
type Report struct {
	ID          string `json:"id"`
	TicketID    string `json:"ticket_id"`
	ReportType  string `json:"report_type"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

func (r Report) Key() string { return r.ID }

// SessionSummary is one row of the conversation audit list.
type SessionSummary struct {
	SessionID    string `json:"session_id"`
	MessageCount int    `json:"message_count"`
	LastActivity string `json:"last_activity"`
}

func (s SessionSummary) Key() string { return s.SessionID }

// SessionMessage is one exchange in a stored conversation.
type SessionMessage struct {
	ID          string          `json:"id"`
	Timestamp   string          `json:"timestamp"`
	UserInput   string          `json:"user_input"`
	BotResponse string          `json:"bot_response"`
	Metadata    MessageMetadata `json:"metadata"`
}

func (m SessionMessage) Key() string { return m.ID }

// MessageMetadata is the classifier output stored with an exchange.
type MessageMetadata struct {
	Intent    string     `json:"intent"`
	Sentiment string     `json:"sentiment"`
	Score     float64    `json:"score"`
	Steps     []StepInfo `json:"steps"`
}

// StepInfo is a recorded pipeline step.
type StepInfo struct {
	Step   string `json:"step"`
	Detail string `json:"detail"`
	Status string `json:"status"`
}

// Profile is a user taxonomy category.
type Profile struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Examples    string `json:"examples"`
}

func (p Profile) Key() string { return p.Code }

// NamedValue is a label/count pair used by distribution charts.
type NamedValue struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Activity is a recent interaction shown on the live dashboard.
type Activity struct {
	Time   string `json:"time"`
	Intent string `json:"intent"`
	User   string `json:"user"`
}

// DashboardStats is the live analytics summary.
type DashboardStats struct {
	TotalInteractions   int          `json:"total_interactions"`
	AverageSentiment    float64      `json:"average_sentiment"`
	IntentsDistribution []NamedValue `json:"intents_distribution"`
	RecentActivity      []Activity   `json:"recent_activity"`
}

// Intelligence is the business intelligence dashboard payload.
type Intelligence struct {
	KPIs struct {
		TotalInteractions int     `json:"total_interactions"`
		TotalSessions     int     `json:"total_sessions"`
		AverageSentiment  float64 `json:"average_sentiment"`
	} `json:"kpis"`
	IntentDistribution []NamedValue `json:"intent_distribution"`
	NewEntities        []GraphNode  `json:"new_entities"`
}
