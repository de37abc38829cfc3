// Package pathfinding defines the events published by the path request
// coordinator.
package pathfinding

import (
	"context"

	"github.com/martinezcajm/ArtificialIntelligenceProject/logging"
)

const (
	// EventPathRequested is emitted when the coordinator picks up a request.
	EventPathRequested logging.EventType = "pathfinding.path_requested"
	// EventPathReady is emitted when a route was installed for a requester.
	EventPathReady logging.EventType = "pathfinding.path_ready"
	// EventPathNotFound is emitted when a search ends without a route.
	EventPathNotFound logging.EventType = "pathfinding.path_not_found"
	// EventSearchSliceTimedOut is emitted each tick a search exhausts its budget.
	EventSearchSliceTimedOut logging.EventType = "pathfinding.search_slice_timed_out"
	// EventRequestOverwritten is emitted when an unconsumed request is replaced.
	EventRequestOverwritten logging.EventType = "pathfinding.request_overwritten"
	// EventPathInstalled is emitted when a mover starts following a route.
	EventPathInstalled logging.EventType = "pathfinding.path_installed"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type RequestPayload struct {
	Origin      Point `json:"origin"`
	Destination Point `json:"destination"`
}

type ResultPayload struct {
	Points   int    `json:"points,omitempty"`
	Ticks    int    `json:"ticks"`
	Expanded int    `json:"expanded"`
	Code     int16  `json:"code"`
	Reason   string `json:"reason,omitempty"`
}

type SlicePayload struct {
	Slice     int   `json:"slice"`
	LiveNodes int   `json:"liveNodes"`
	BudgetUS  int64 `json:"budgetMicros"`
}

type OverwritePayload struct {
	Previous RequestPayload `json:"previous"`
	Next     RequestPayload `json:"next"`
}

type InstalledPayload struct {
	Points int `json:"points"`
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, tick uint64, actor logging.EntityRef, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryPathfinding,
		Payload:  payload,
	})
}

func PathRequested(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload RequestPayload) {
	publish(ctx, pub, EventPathRequested, logging.SeverityDebug, tick, actor, payload)
}

func PathReady(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ResultPayload) {
	publish(ctx, pub, EventPathReady, logging.SeverityInfo, tick, actor, payload)
}

// PathNotFound is published at warn level; unreachable goals usually point
// at a scenario mistake.
func PathNotFound(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ResultPayload) {
	publish(ctx, pub, EventPathNotFound, logging.SeverityWarn, tick, actor, payload)
}

func SearchSliceTimedOut(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SlicePayload) {
	publish(ctx, pub, EventSearchSliceTimedOut, logging.SeverityDebug, tick, actor, payload)
}

func RequestOverwritten(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload OverwritePayload) {
	publish(ctx, pub, EventRequestOverwritten, logging.SeverityWarn, tick, actor, payload)
}

func PathInstalled(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload InstalledPayload) {
	publish(ctx, pub, EventPathInstalled, logging.SeverityInfo, tick, actor, payload)
}
