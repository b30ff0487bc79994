package audit

type ListRequest struct {
	EntityType *string `json:"entity_type,omitempty"`
	EntityID   *string `json:"entity_id,omitempty"`
	Action     *string `json:"action,omitempty"`
	ActorID    *string `json:"actor_id,omitempty"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
}

type EntryResponse struct {
	ID         string                 `json:"id"`
	EntityType string                 `json:"entity_type"`
	EntityID   *string                `json:"entity_id,omitempty"`
	Action     string                 `json:"action"`
	ActorID    string                 `json:"actor_id"`
	Before     map[string]interface{} `json:"before,omitempty"`
	After      map[string]interface{} `json:"after,omitempty"`
	Changes    []FieldChange          `json:"changes,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  string                 `json:"created_at"`
}

type ListResponse struct {
	Data       []EntryResponse `json:"data"`
	TotalCount int64           `json:"total_count"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
}
