package hub

// Frame types exchanged on the realtime channel.
const (
	FrameStatusUpdate = "status_update"
	FrameJoinFaculty  = "join_faculty"
	FrameLeaveFaculty = "leave_faculty"
)

// Frame is one websocket message. Servers send status_update frames carrying
// Data; clients send join_faculty and leave_faculty frames naming FacultyID.
type Frame struct {
	Type      string `json:"type"`
	Data      *Event `json:"data,omitempty"`
	FacultyID int64  `json:"faculty_id,omitempty"`
}
