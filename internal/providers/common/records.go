package common

import (
	"bytes"
	"encoding/json"
	"fmt"

	"vidstream/metaservice/internal/domain"
)

// ParseMirrorRecords decodes a mirror-API response body: a JSON array of
// objects carrying title, videoId and lengthSeconds. A top-level value
// that is not a valid JSON array is a total parse failure. Elements
// missing any of the three required fields are dropped; the rest of the
// batch survives.
func ParseMirrorRecords(payload []byte) ([]domain.VideoRecord, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("decode mirror payload: %w", err)
	}

	records := make([]domain.VideoRecord, 0, len(items))
	for _, item := range items {
		var entry struct {
			Title         *string  `json:"title"`
			VideoID       *string  `json:"videoId"`
			LengthSeconds *float64 `json:"lengthSeconds"`
		}
		if err := json.Unmarshal(item, &entry); err != nil {
			continue
		}
		if entry.Title == nil || entry.VideoID == nil || entry.LengthSeconds == nil {
			continue
		}
		if *entry.LengthSeconds < 0 {
			continue
		}
		records = append(records, domain.VideoRecord{
			Title:           *entry.Title,
			DurationSeconds: uint64(*entry.LengthSeconds),
			VideoID:         *entry.VideoID,
		})
	}
	return records, nil
}

// ParseFlatLine decodes a single line of yt-dlp --dump-json output.
// Flat-playlist entries carry id and title; duration is frequently null
// or absent and defaults to 0. Returns false for blank or malformed
// lines so callers can skip them without aborting the batch.
func ParseFlatLine(line []byte) (domain.VideoRecord, bool) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return domain.VideoRecord{}, false
	}

	var entry struct {
		ID       *string  `json:"id"`
		Title    *string  `json:"title"`
		Duration *float64 `json:"duration"`
	}
	if err := json.Unmarshal(trimmed, &entry); err != nil {
		return domain.VideoRecord{}, false
	}
	if entry.ID == nil || entry.Title == nil {
		return domain.VideoRecord{}, false
	}

	var duration uint64
	if entry.Duration != nil && *entry.Duration > 0 {
		duration = uint64(*entry.Duration)
	}
	return domain.VideoRecord{
		Title:           *entry.Title,
		DurationSeconds: duration,
		VideoID:         *entry.ID,
	}, true
}
