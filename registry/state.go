// This file is part of tascore.
//
// tascore is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// tascore is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with tascore.  If not, see <https://www.gnu.org/licenses/>.

package registry

// State is a descriptor's position in the quiesce state machine.
type State int32

const (
	Running State = iota
	Signaled
	SuspendInProgress
	Suspended
	Zombie
	FakeZombie
	CheckpointThread
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Signaled:
		return "signaled"
	case SuspendInProgress:
		return "suspend-in-progress"
	case Suspended:
		return "suspended"
	case Zombie:
		return "zombie"
	case FakeZombie:
		return "fake-zombie"
	case CheckpointThread:
		return "checkpoint-thread"
	default:
		return "unknown"
	}
}
