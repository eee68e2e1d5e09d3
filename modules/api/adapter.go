package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/course-chat/modules/activity"
)

// ActivityPort defines the interface for reading room activity.
type ActivityPort interface {
	GetRoomActivity(ctx context.Context, roomID string) (activity.RoomActivity, bool, error)
	ListRoomActivity(ctx context.Context) ([]activity.RoomActivity, error)
}

// ActivityAdapter wraps the activity module's request-reply services.
type ActivityAdapter struct {
	container mono.ServiceContainer
}

// NewActivityAdapter creates a new adapter for the activity services.
func NewActivityAdapter(container mono.ServiceContainer) ActivityPort {
	return &ActivityAdapter{container: container}
}

// GetRoomActivity fetches one room's tally.
func (a *ActivityAdapter) GetRoomActivity(ctx context.Context, roomID string) (activity.RoomActivity, bool, error) {
	req := activity.GetRoomActivityRequest{RoomID: roomID}
	var resp activity.GetRoomActivityResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		activity.ServiceGetRoomActivity,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return activity.RoomActivity{}, false, fmt.Errorf("failed to get room activity: %w", err)
	}
	return resp.Activity, resp.Found, nil
}

// ListRoomActivity fetches every room's tally.
func (a *ActivityAdapter) ListRoomActivity(ctx context.Context) ([]activity.RoomActivity, error) {
	req := activity.ListRoomActivityRequest{}
	var resp activity.ListRoomActivityResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		activity.ServiceListRoomActivity,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to list room activity: %w", err)
	}
	return resp.Rooms, nil
}
