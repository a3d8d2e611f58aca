package teleop

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gwillem/kraken/pkg/robot"
)

// Notifier receives session events. Calls come from the polling goroutine or
// the lifecycle caller and must not block.
type Notifier interface {
	Status(text string)
	AngleUpdated(index, angle int)
}

type discard struct{}

func (discard) Status(string)        {}
func (discard) AngleUpdated(int, int) {}

// PoseUpdate is the mirrored servo pose after an angle change.
type PoseUpdate struct {
	Pose      robot.Pose
	Timestamp time.Time
}

// Channels is a Notifier for UIs. Status lines are timestamped and dropped
// when the log channel is full; only the latest pose is kept.
type Channels struct {
	mu     sync.Mutex
	last   string
	pose   robot.Pose
	logCh  chan string
	poseCh chan PoseUpdate
}

// NewChannels creates a Channels notifier.
func NewChannels() *Channels {
	return &Channels{
		pose:   robot.CenteredPose(),
		logCh:  make(chan string, 10),
		poseCh: make(chan PoseUpdate, 1),
	}
}

// Logs returns a channel that receives status lines.
func (n *Channels) Logs() <-chan string {
	return n.logCh
}

// Poses returns a channel that receives pose updates.
func (n *Channels) Poses() <-chan PoseUpdate {
	return n.poseCh
}

// Status publishes text unless it repeats the previous status.
func (n *Channels) Status(text string) {
	n.mu.Lock()
	if text == n.last {
		n.mu.Unlock()
		return
	}
	n.last = text
	n.mu.Unlock()

	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), text)
	select {
	case n.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// AngleUpdated records the angle and publishes the whole pose.
func (n *Channels) AngleUpdated(index, angle int) {
	n.mu.Lock()
	if index < 0 || index >= len(n.pose) {
		n.mu.Unlock()
		return
	}
	n.pose[index] = angle
	u := PoseUpdate{Pose: n.pose, Timestamp: time.Now()}
	n.mu.Unlock()

	select {
	case n.poseCh <- u:
	default:
		// Drop old pose if channel full, replace with new
		select {
		case <-n.poseCh:
		default:
		}
		select {
		case n.poseCh <- u:
		default:
		}
	}
}

// LogNotifier writes session events to a logger, for headless use.
type LogNotifier struct {
	log  *log.Logger
	mu   sync.Mutex
	last string
}

// NewLogNotifier returns a Notifier backed by l.
func NewLogNotifier(l *log.Logger) *LogNotifier {
	if l == nil {
		l = log.Default()
	}
	return &LogNotifier{log: l}
}

func (n *LogNotifier) Status(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if text == n.last {
		return
	}
	n.last = text
	n.log.Info(text)
}

func (n *LogNotifier) AngleUpdated(index, angle int) {
	servos := robot.AllServos()
	if index < 0 || index >= len(servos) {
		return
	}
	n.log.Debug("angle", "servo", servos[index], "angle", angle)
}
