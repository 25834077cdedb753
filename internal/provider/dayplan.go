package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/pulseboard/pulseboard/internal/platform"
)

// dayplanDefaultBaseURL is the task tracker API root.
const dayplanDefaultBaseURL = "https://api.dayplan.app/v1"

// DayplanTask is one task in the tracker.
type DayplanTask struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority,omitempty"`
	Project     string     `json:"project,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	URL         string     `json:"url,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// DayplanPayload is the raw output of one dayplan fetch: the full current
// task list.
type DayplanPayload struct {
	Tasks     []DayplanTask `json:"tasks"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// Platform implements Payload.
func (DayplanPayload) Platform() platform.Platform { return platform.Dayplan }

// DayplanProvider fetches the full task list from the tracker.
type DayplanProvider struct {
	BaseURL string
	Client  *http.Client
	Now     func() time.Time
}

// NewDayplanProvider returns a DayplanProvider with production defaults.
func NewDayplanProvider() *DayplanProvider {
	return &DayplanProvider{
		BaseURL: dayplanDefaultBaseURL,
		Now:     time.Now,
	}
}

// Platform implements Provider.
func (d *DayplanProvider) Platform() platform.Platform { return platform.Dayplan }

// Fetch retrieves the full current task list.
func (d *DayplanProvider) Fetch(ctx context.Context, token string) (Result, error) {
	client := httpClient(d.Client)
	base := d.BaseURL

	if base == "" {
		base = dayplanDefaultBaseURL
	}

	var tasks struct {
		Tasks []DayplanTask `json:"tasks"`
	}

	resp, err := getJSON(ctx, client, base+"/tasks", "Bearer "+token, nil, &tasks)
	if err != nil {
		return Result{}, classifyCommon(resp, err, d.now)
	}

	payload := DayplanPayload{
		Tasks:     tasks.Tasks,
		FetchedAt: d.now(),
	}

	return Result{Payload: payload, Headers: resp.Header}, nil
}

func (d *DayplanProvider) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}

	return time.Now()
}
