package pose

// Well-known indices of the body-pose landmark scheme used by the relay.
const (
	IndexNose          = 0
	IndexLeftShoulder  = 11
	IndexRightShoulder = 12
)

// Landmark is one normalized body-joint coordinate.
// X and Y are in [0,1] relative to the frame, Z is relative depth and
// Visibility is the detector's confidence in [0,1].
type Landmark struct {
	X          float64 `json:"x" msgpack:"x"`
	Y          float64 `json:"y" msgpack:"y"`
	Z          float64 `json:"z" msgpack:"z"`
	Visibility float64 `json:"visibility" msgpack:"visibility"`
}

// Frame is the complete set of landmarks of one capture instant, in index order.
type Frame []Landmark

// Len returns the number of landmarks in the frame.
func (f Frame) Len() int {
	return len(f)
}

// At returns the landmark at index i and whether the frame holds it.
func (f Frame) At(i int) (Landmark, bool) {
	if i < 0 || i >= len(f) {
		return Landmark{}, false
	}
	return f[i], true
}
