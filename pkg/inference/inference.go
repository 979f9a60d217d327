// Package inference submits completed sensor windows to a remote gesture
// classifier.
//
// The wire contract is a single JSON round trip:
//
//	POST /predict
//	{"sensor_data": [<N*12 floats, sample-major>]}
//
//	200 {"prediction": "wave"}
//	4xx {"error": "bad input"}
//
// Example usage:
//
//	client, _ := inference.NewClient(
//	    inference.WithEndpoint("http://127.0.0.1:5000/predict"),
//	    inference.WithTimeout(5*time.Second),
//	)
//	defer client.Close()
//
//	pred, err := client.Predict(ctx, w)
//	switch {
//	case err == nil:
//	    fmt.Println("Predicted Gesture:", pred.Label)
//	case inference.IsServer(err):
//	    // the classifier rejected the window
//	default:
//	    // transport failure, timeout or malformed response
//	}
package inference

import (
	"context"
	"time"

	"github.com/teslashibe/go-gesture/pkg/window"
)

// Classifier predicts a gesture label for a completed window.
// All implementations must satisfy this interface.
type Classifier interface {
	// Predict performs one request for w. Errors are either *ServerError
	// (the classifier answered with an error) or *TransportError.
	Predict(ctx context.Context, w *window.Window) (*Prediction, error)

	// Health checks that the classifier endpoint is reachable.
	Health(ctx context.Context) error

	// Close releases any resources held by the classifier.
	Close() error
}

// Prediction is a successful classification.
type Prediction struct {
	// Label is the predicted gesture name.
	Label string

	// Endpoint is the URL that answered.
	Endpoint string

	// Latency is the round-trip time of the request.
	Latency time.Duration
}

// predictRequest is the request body sent to the classifier.
type predictRequest struct {
	SensorData []float64 `json:"sensor_data"`
}
