package handler

// CreateResponse is the HTTP response for POST /api/citizen.
type CreateResponse struct {
	ID int64 `json:"id"`
}

// ImportResponse is the HTTP response for POST /api/citizen/import.
type ImportResponse struct {
	Imported int `json:"imported"`
}
