package models

import (
	"time"

	"bctvictracker.ca/internal/clock"
)

// ResponseModel is the envelope every JSON endpoint returns.
type ResponseModel struct {
	Code        int         `json:"code"`
	CurrentTime int64       `json:"currentTime"`
	Data        interface{} `json:"data,omitempty"`
	Text        string      `json:"text"`
	Version     int         `json:"version"`
}

// ResponseCurrentTime returns the current time in epoch milliseconds.
func ResponseCurrentTime(c clock.Clock) int64 {
	return c.Now().UnixMilli()
}

// NewOKResponse wraps data in a 200 envelope.
func NewOKResponse(data interface{}, c clock.Clock) ResponseModel {
	return ResponseModel{
		Code:        200,
		CurrentTime: ResponseCurrentTime(c),
		Data:        data,
		Text:        "OK",
		Version:     2,
	}
}

// CurrentTimeData is the payload of the current-time endpoint.
type CurrentTimeData struct {
	ReadableTime string `json:"readableTime"`
	Time         int64  `json:"time"`
}

// NewCurrentTimeData builds a CurrentTimeData from t.
func NewCurrentTimeData(t time.Time) CurrentTimeData {
	return CurrentTimeData{
		ReadableTime: t.Format(time.RFC3339),
		Time:         t.UnixMilli(),
	}
}
