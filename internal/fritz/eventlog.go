// internal/fritz/eventlog.go
package fritz

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const dataRoute = "/data.lua"

// RawEntry is one event-log row exactly as the device returned it.
// Code is the firmware's event ID and may be empty on old releases.
type RawEntry struct {
	Date    string
	Time    string
	Message string
	Code    string
}

// FetchEventLog retrieves the device's full retained event log in one
// call. The device bounds its own history (roughly 400 entries) and has
// no server-side cursor, so every call returns the whole window.
//
// Entries come back in device emission order: newest first. Callers must
// not rely on that blindly; the dedup stage re-derives the order per
// batch.
func (c *Client) FetchEventLog(ctx context.Context, sid string) ([]RawEntry, error) {
	// lang is pinned so the date format can't drift with the UI locale.
	form := url.Values{
		"xhr":   {"1"},
		"sid":   {sid},
		"lang":  {"de"},
		"page":  {"log"},
		"xhrId": {"log"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+dataRoute, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: data.lua returned status %d", ErrProtocol, resp.StatusCode)
	}

	trimmed := bytes.TrimSpace(body)

	// An invalid SID gets the HTML login page instead of JSON.
	if bytes.HasPrefix(trimmed, []byte("<")) {
		return nil, ErrSessionExpired
	}

	var payload struct {
		Data struct {
			Log []json.RawMessage `json:"log"`
		} `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	entries := make([]RawEntry, 0, len(payload.Data.Log))
	for i, raw := range payload.Data.Log {
		entry, err := decodeEntry(raw)
		if err != nil {
			c.log.Debug().Int("index", i).Err(err).Msg("skipping undecodable log row")
			continue
		}
		entries = append(entries, entry)
	}

	c.log.Debug().Int("entries", len(entries)).Msg("event log fetched")
	return entries, nil
}

// decodeEntry accepts both response generations: current firmware sends
// objects {"date","time","msg","id"}, pre-7.x firmware sends positional
// arrays [date, time, msg, id].
func decodeEntry(raw json.RawMessage) (RawEntry, error) {
	var dict struct {
		Date string `json:"date"`
		Time string `json:"time"`
		Msg  string `json:"msg"`
		ID   any    `json:"id"`
	}
	if err := json.Unmarshal(raw, &dict); err == nil {
		return RawEntry{
			Date:    dict.Date,
			Time:    dict.Time,
			Message: dict.Msg,
			Code:    codeString(dict.ID),
		}, nil
	}

	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil && len(arr) >= 3 {
		entry := RawEntry{Date: arr[0], Time: arr[1], Message: arr[2]}
		if len(arr) > 3 {
			entry.Code = arr[3]
		}
		return entry, nil
	}

	return RawEntry{}, errors.New("neither object nor positional form")
}

// codeString normalizes the event ID, which the firmware serializes as a
// number or a string depending on release.
func codeString(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
