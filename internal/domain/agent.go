package domain

// Agent is a support agent as listed by the agent directory. ID is the
// ticketing-system id that tickets reference in AgentID.
type Agent struct {
	ID     int64  `json:"external_id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}
