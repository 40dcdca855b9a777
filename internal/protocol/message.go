package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ornithopter83/selftrack/internal/pose"
)

// Inbound message types, sent by the relay page.
const (
	TypePoseData     = "POSE_DATA"
	TypeResizeWindow = "RESIZE_WINDOW"
)

// Outbound message types, sent by the host to its receiver pages.
const (
	TypeInit     = "INIT"
	TypeGeometry = "GEOMETRY"
)

// Inbound is one decoded message from the relay page.
// It is one of PoseData, ResizeWindow or Unknown.
type Inbound interface {
	Kind() string
}

// PoseData carries one landmark frame.
type PoseData struct {
	Landmarks pose.Frame
}

func (PoseData) Kind() string { return TypePoseData }

// ResizeWindow carries the dimensions of the remote video stream.
type ResizeWindow struct {
	Width  int
	Height int
}

func (ResizeWindow) Kind() string { return TypeResizeWindow }

// Unknown is any message whose type the host does not handle.
type Unknown struct {
	Type string
}

func (u Unknown) Kind() string { return u.Type }

type envelope struct {
	Type string `json:"type" msgpack:"type"`
}

type poseBody struct {
	Landmarks *[]pose.Landmark `json:"landmarks" msgpack:"landmarks"`
}

type resizeBody struct {
	Width  *int `json:"width" msgpack:"width"`
	Height *int `json:"height" msgpack:"height"`
}

// DecodeJSON decodes a text message.
func DecodeJSON(raw []byte) (Inbound, error) {
	return decode(raw, json.Unmarshal)
}

// DecodeMsgpack decodes a binary message carrying the same schema as DecodeJSON.
func DecodeMsgpack(raw []byte) (Inbound, error) {
	return decode(raw, msgpack.Unmarshal)
}

func decode(raw []byte, unmarshal func([]byte, any) error) (Inbound, error) {
	var env envelope
	if err := unmarshal(raw, &env); err != nil {
		return nil, NewDropError("decode envelope", ErrMalformedMessage, err.Error())
	}

	switch env.Type {
	case TypePoseData:
		var body poseBody
		if err := unmarshal(raw, &body); err != nil {
			return nil, NewDropError("decode pose data", ErrMalformedMessage, err.Error())
		}
		if body.Landmarks == nil {
			return nil, NewDropError("decode pose data", ErrMalformedMessage, "missing landmarks")
		}
		return PoseData{Landmarks: pose.Frame(*body.Landmarks)}, nil

	case TypeResizeWindow:
		var body resizeBody
		if err := unmarshal(raw, &body); err != nil {
			return nil, NewDropError("decode resize", ErrMalformedMessage, err.Error())
		}
		if body.Width == nil || body.Height == nil {
			return nil, NewDropError("decode resize", ErrMalformedMessage, "missing width or height")
		}
		return ResizeWindow{Width: *body.Width, Height: *body.Height}, nil

	default:
		return Unknown{Type: env.Type}, nil
	}
}

// Init is sent once to every receiver page right after it connects.
type Init struct {
	Type string `json:"type"`
	Room string `json:"room"`
	Mode string `json:"mode"`
	URL  string `json:"url"`
}

func NewInit(room, mode, url string) *Init {
	return &Init{Type: TypeInit, Room: room, Mode: mode, URL: url}
}

// Geometry tells receiver pages the bounds of the video and overlay surfaces.
type Geometry struct {
	Type   string `json:"type"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Header int    `json:"header"`
}

func NewGeometry(width, height, header int) *Geometry {
	return &Geometry{Type: TypeGeometry, Width: width, Height: height, Header: header}
}

func (g *Geometry) String() string {
	return fmt.Sprintf("%dx%d+%d", g.Width, g.Height, g.Header)
}
