package remote

import (
	"context"
	"net/http"
	"net/url"

	"siraqemir/internal/models"
)

// ListTasks returns the signed-in user's tasks. The service scopes by
// token, so userID only has to match the session.
func (c *Client) ListTasks(ctx context.Context, _ string) ([]models.Task, error) {
	var tasks []models.Task
	if err := c.do(ctx, http.MethodGet, "/tasks", nil, &tasks, true); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) InsertTask(ctx context.Context, task models.Task) (*models.Task, error) {
	var created models.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", models.InputFromTask(task), &created, true); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, task models.Task) (*models.Task, error) {
	var updated models.Task
	if err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), models.InputFromTask(task), &updated, true); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil, true)
}
