package models

// DashboardStats aggregates lifecycle counters for the landing screen.
// LastCorrelative is the last response correlative issued in the current year.
type DashboardStats struct {
	PendingRequests      int               `json:"pendingRequests"`
	InProgressRequests   int               `json:"inProgressRequests"`
	AnsweredRequests     int               `json:"answeredRequests"`
	TotalRequests        int               `json:"totalRequests"`
	TotalResponses       int               `json:"totalResponses"`
	ActiveFlaggedPersons int               `json:"activeFlaggedPersons"`
	RequestsThisMonth    int               `json:"requestsThisMonth"`
	ResponsesThisMonth   int               `json:"responsesThisMonth"`
	LastCorrelative      int               `json:"lastCorrelative"`
	RecentRequests       []RequestSummary  `json:"recentRequests"`
	RecentResponses      []ResponseSummary `json:"recentResponses"`
}
