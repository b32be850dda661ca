package domain

type StreamStats struct {
	ID           StreamID `json:"id"`
	Name         string   `json:"name"`
	ClicksNode   int64    `json:"clicks_node"`
	ClicksPython int64    `json:"clicks_python"`
	Total        int64    `json:"total"`
}

type UsageSummary struct {
	Accounts     int   `json:"accounts"`
	Streams      int   `json:"streams"`
	ClicksNode   int64 `json:"clicks_node"`
	ClicksPython int64 `json:"clicks_python"`
	Total        int64 `json:"total"`
}

// DuplicateGroup lists streams sharing a normalized key.
type DuplicateGroup struct {
	Key     string    `json:"key"`
	Streams []*Stream `json:"streams"`
}

type DuplicateReport struct {
	TotalStreams         int              `json:"total_streams"`
	ByName               []DuplicateGroup `json:"by_name"`
	ByEndpoint           []DuplicateGroup `json:"by_endpoint"`
	ByNameAndEndpoint    []DuplicateGroup `json:"by_name_and_endpoint"`
	DuplicateNames       int              `json:"duplicate_names"`
	DuplicateEndpoints   int              `json:"duplicate_endpoints"`
	DuplicateCombination int              `json:"duplicate_combinations"`
}
