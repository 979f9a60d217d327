package protocol

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/teslashibe/go-gesture/pkg/sensor"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    interface{}
		wantErr bool
	}{
		{
			name:    "acceleration message",
			msgType: TypeAcceleration,
			data:    VectorData{X: 0.1, Y: 9.8, Z: 0},
			wantErr: false,
		},
		{
			name:    "status message",
			msgType: TypeStatus,
			data:    StatusData{State: "collecting", Buffered: 12},
			wantErr: false,
		},
		{
			name:    "nil data",
			msgType: TypePing,
			data:    nil,
			wantErr: false,
		},
		{
			name:    "unmarshalable data",
			msgType: TypeStatus,
			data:    make(chan int),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestVectorMessageRoundTrip(t *testing.T) {
	msg, err := NewVectorMessage(sensor.Orientation, sensor.Vector{0.1, 0.2, 0.3, 0.9})
	if err != nil {
		t.Fatalf("NewVectorMessage() error = %v", err)
	}

	raw, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	parsed, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if parsed.Type != TypeOrientation {
		t.Errorf("Type = %v, want %v", parsed.Type, TypeOrientation)
	}

	events, err := parsed.Events()
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	want := []sensor.Event{{Channel: sensor.Orientation, Values: sensor.Vector{0.1, 0.2, 0.3, 0.9}}}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("Events() = %v, want %v", events, want)
	}
}

func TestVectorDataOmitsW(t *testing.T) {
	msg, err := NewVectorMessage(sensor.Gravity, sensor.Vector{0, -1, 0})
	if err != nil {
		t.Fatalf("NewVectorMessage() error = %v", err)
	}

	var fields map[string]float64
	if err := json.Unmarshal(msg.Data, &fields); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if _, ok := fields["w"]; ok {
		t.Error("gravity reading should not carry w")
	}
	if len(fields) != 3 {
		t.Errorf("got %d fields, want 3", len(fields))
	}
}

func TestNewVectorMessageErrors(t *testing.T) {
	if _, err := NewVectorMessage(sensor.Channel(99), sensor.Vector{1, 2, 3}); !errors.Is(err, sensor.ErrUnknownChannel) {
		t.Errorf("unknown channel error = %v, want ErrUnknownChannel", err)
	}
	if _, err := NewVectorMessage(sensor.Acceleration, sensor.Vector{1}); !errors.Is(err, sensor.ErrArity) {
		t.Errorf("short vector error = %v, want ErrArity", err)
	}
}

func TestParseWireMessages(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []sensor.Event
		wantErr bool
	}{
		{
			name: "acceleration",
			raw:  `{"type":"acceleration","ts":1,"data":{"x":1,"y":0,"z":0}}`,
			want: []sensor.Event{{Channel: sensor.Acceleration, Values: sensor.Vector{1, 0, 0}}},
		},
		{
			name: "angular velocity",
			raw:  `{"type":"angular_velocity","data":{"x":0,"y":0,"z":1}}`,
			want: []sensor.Event{{Channel: sensor.AngularVelocity, Values: sensor.Vector{0, 0, 1}}},
		},
		{
			name: "orientation without w passes through short",
			raw:  `{"type":"orientation","data":{"x":0,"y":0,"z":0}}`,
			want: []sensor.Event{{Channel: sensor.Orientation, Values: sensor.Vector{0, 0, 0}}},
		},
		{
			name: "batch",
			raw: `{"type":"batch","data":{"readings":[
				{"channel":"gravity","values":[0,-1,0]},
				{"channel":"orientation","values":[0,0,0,1]}]}}`,
			want: []sensor.Event{
				{Channel: sensor.Gravity, Values: sensor.Vector{0, -1, 0}},
				{Channel: sensor.Orientation, Values: sensor.Vector{0, 0, 0, 1}},
			},
		},
		{
			name:    "batch with unknown channel",
			raw:     `{"type":"batch","data":{"readings":[{"channel":"magnetometer","values":[1,2,3]}]}}`,
			wantErr: true,
		},
		{
			name:    "sensor message without data",
			raw:     `{"type":"gravity"}`,
			wantErr: true,
		},
		{
			name:    "not a sensor message",
			raw:     `{"type":"ping","data":{"id":"p1","ts":5}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseMessage([]byte(tt.raw))
			if err != nil {
				t.Fatalf("ParseMessage() error = %v", err)
			}
			got, err := msg.Events()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Events() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Events() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseMessageInvalid(t *testing.T) {
	for _, raw := range []string{`not json`, `{}`, `{"data":{}}`} {
		if _, err := ParseMessage([]byte(raw)); err == nil {
			t.Errorf("ParseMessage(%q) should fail", raw)
		}
	}
}

func TestIsSensor(t *testing.T) {
	for _, mt := range []MessageType{TypeAcceleration, TypeGravity, TypeAngularVelocity, TypeOrientation, TypeBatch} {
		if !mt.IsSensor() {
			t.Errorf("%s.IsSensor() = false", mt)
		}
	}
	for _, mt := range []MessageType{TypePing, TypePong, TypeStatus, TypeError} {
		if mt.IsSensor() {
			t.Errorf("%s.IsSensor() = true", mt)
		}
	}
}

func TestSensorTypesMatchChannels(t *testing.T) {
	for _, ch := range sensor.Channels {
		if !MessageType(ch.String()).IsSensor() {
			t.Errorf("channel %s has no message type", ch)
		}
	}
}

func TestPingPong(t *testing.T) {
	ping, err := NewPingMessage("p1")
	if err != nil {
		t.Fatalf("NewPingMessage() error = %v", err)
	}
	pd, err := ping.GetPingData()
	if err != nil {
		t.Fatalf("GetPingData() error = %v", err)
	}
	if pd.ID != "p1" || pd.Timestamp == 0 {
		t.Errorf("ping data = %+v", pd)
	}

	pong, err := NewPongMessage("p1", 1000, 1025)
	if err != nil {
		t.Fatalf("NewPongMessage() error = %v", err)
	}
	data, err := pong.GetPongData()
	if err != nil {
		t.Fatalf("GetPongData() error = %v", err)
	}
	if data.LatencyMs != 25 {
		t.Errorf("LatencyMs = %v, want 25", data.LatencyMs)
	}
}

func TestStatusAndErrorMessages(t *testing.T) {
	msg, err := NewStatusMessage(StatusData{State: "idle", Windows: 3, Prediction: "Predicted Gesture: wave"})
	if err != nil {
		t.Fatalf("NewStatusMessage() error = %v", err)
	}
	st, err := msg.GetStatusData()
	if err != nil {
		t.Fatalf("GetStatusData() error = %v", err)
	}
	if st.State != "idle" || st.Windows != 3 {
		t.Errorf("status = %+v", st)
	}

	msg, err = NewErrorMessage(errors.New("bad arity"))
	if err != nil {
		t.Fatalf("NewErrorMessage() error = %v", err)
	}
	ed, err := msg.GetErrorData()
	if err != nil {
		t.Fatalf("GetErrorData() error = %v", err)
	}
	if ed.Message != "bad arity" {
		t.Errorf("Message = %q", ed.Message)
	}
}
