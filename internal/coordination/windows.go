// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

package coordination

import "time"

// BuildWindows partitions one content group's events into coordination
// windows: contiguous fixed-width bins of the timeline, anchored at the
// first event's timestamp. A bin qualifies as a window only if it contains
// events from at least minActors distinct actors.
//
// KNOWN LIMITATION: this is fixed-width binning, not density clustering.
// Two events 59 seconds apart can land in different bins when a bin
// boundary falls between them, splitting otherwise-coordinated shares.
// The behavior is preserved deliberately for compatibility with the
// reference detection semantics; changing it changes detection sensitivity
// and is a product decision, not a bug fix.
func BuildWindows(group ContentGroup, interval time.Duration, minActors int) []CoordinationWindow {
	if len(group.Events) == 0 || interval <= 0 {
		return nil
	}
	if minActors < 2 {
		minActors = 2
	}

	events := make([]Event, len(group.Events))
	copy(events, group.Events)
	sortEventsByTime(events)

	anchor := events[0].Timestamp

	// Bin index by offset from the first event. Map preserves sparse bins
	// without allocating the full timeline.
	bins := make(map[int64][]Event)
	var order []int64
	for _, ev := range events {
		idx := int64(ev.Timestamp.Sub(anchor) / interval)
		if _, ok := bins[idx]; !ok {
			order = append(order, idx)
		}
		bins[idx] = append(bins[idx], ev)
	}

	var windows []CoordinationWindow
	for _, idx := range order {
		binEvents := bins[idx]

		actors := make(map[string]struct{}, len(binEvents))
		for i := range binEvents {
			actors[binEvents[i].ActorID] = struct{}{}
		}
		if len(actors) < minActors {
			continue
		}

		start := anchor.Add(time.Duration(idx) * interval)
		windows = append(windows, CoordinationWindow{
			GroupKey: group.Key,
			Start:    start,
			End:      start.Add(interval),
			Events:   binEvents,
		})
	}

	return windows
}
