package normalize

import (
	"encoding/json"

	"github.com/pulseboard/pulseboard/internal/platform"
	"github.com/pulseboard/pulseboard/internal/provider"
	"github.com/pulseboard/pulseboard/internal/timeline"
)

// Dayplan normalizes a task-list snapshot into task items timestamped by
// last update.
func Dayplan(raw []byte) ([]timeline.Item, error) {
	var payload provider.DayplanPayload

	err := json.Unmarshal(raw, &payload)
	if err != nil {
		return nil, provider.ParseError(err)
	}

	items := make([]timeline.Item, 0, len(payload.Tasks))

	for _, task := range payload.Tasks {
		if task.ID == "" || task.UpdatedAt.IsZero() {
			continue
		}

		items = append(items, timeline.Item{
			ID:        "dp:task:" + task.ID,
			Platform:  platform.Dayplan,
			Type:      timeline.TypeTask,
			Timestamp: task.UpdatedAt,
			Title:     truncate(task.Title, shortTitleMax),
			URL:       task.URL,
			Payload: timeline.TaskPayload{
				Status:      task.Status,
				Priority:    task.Priority,
				Project:     task.Project,
				Tags:        task.Tags,
				DueDate:     task.DueDate,
				CompletedAt: task.CompletedAt,
			},
		})
	}

	return items, nil
}
