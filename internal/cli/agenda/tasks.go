package agenda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/daychain/internal/cli"
	"github.com/julianstephens/daychain/internal/constants"
	"github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/models"
)

type TaskAddCmd struct {
	Title    string `arg:"" help:"Task title."`
	Duration int    `help:"Estimated duration in minutes. Zero uses the engine default."`
	Deadline string `help:"Deadline (YYYY-MM-DD, end of day, or RFC 3339)."`
}

func (c *TaskAddCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	settings, err := ctx.Settings(bg)
	if err != nil {
		return err
	}
	title := strings.TrimSpace(c.Title)
	if title == "" {
		return errors.Validationf("title is required")
	}
	if c.Duration < 0 {
		return errors.Validationf("duration must not be negative")
	}

	task := models.Task{
		ID:                   uuid.NewString(),
		UserID:               settings.UserID,
		Title:                title,
		EstimatedDurationMin: c.Duration,
		Status:               models.TaskPending,
		CreatedAt:            ctx.CurrentTime().UTC(),
	}
	if c.Deadline != "" {
		loc, err := ctx.Location(settings)
		if err != nil {
			return err
		}
		d, err := parseDeadline(c.Deadline, loc)
		if err != nil {
			return err
		}
		task.Deadline = &d
	}

	if err := ctx.Store.AddTask(bg, task); err != nil {
		return fmt.Errorf("failed to add task: %w", err)
	}
	ctx.Invalidate(bg, settings.UserID, "")
	ctx.Printf("Added task: %s (ID: %s)\n", task.Title, task.ID)
	return nil
}

// parseDeadline reads a bare date as the last minute of that day.
func parseDeadline(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	day, err := time.ParseInLocation(constants.DateFormat, s, loc)
	if err != nil {
		return time.Time{}, errors.Validationf("invalid deadline %q, use YYYY-MM-DD or RFC 3339", s)
	}
	return day.Add(24*time.Hour - time.Minute), nil
}

type TaskListCmd struct{}

func (c *TaskListCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	settings, err := ctx.Settings(bg)
	if err != nil {
		return err
	}
	tasks, err := ctx.Store.GetPendingTasks(bg, settings.UserID)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}
	if len(tasks) == 0 {
		ctx.Println("No pending tasks.")
		return nil
	}
	for _, t := range tasks {
		dur := "default"
		if t.EstimatedDurationMin > 0 {
			dur = fmt.Sprintf("%dm", t.EstimatedDurationMin)
		}
		due := "-"
		if t.Deadline != nil {
			due = t.Deadline.Format(constants.DateFormat)
		}
		ctx.Printf("%-36s  %-30s %-8s due %s\n", t.ID, t.Title, dur, due)
	}
	return nil
}

type TaskDoneCmd struct {
	ID string `arg:"" help:"Task id."`
}

func (c *TaskDoneCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	if err := ctx.Store.UpdateTaskStatus(bg, c.ID, models.TaskCompleted); err != nil {
		return err
	}
	settings, err := ctx.Settings(bg)
	if err != nil {
		return err
	}
	ctx.Invalidate(bg, settings.UserID, "")
	ctx.Println("Task completed.")
	return nil
}
