package memory

import "github.com/coregx/civicpush"

// Repositories holds all in-memory repository implementations.
type Repositories struct {
	Device     civicpush.DeviceRepository
	Message    civicpush.MessageRepository
	Activation civicpush.ActivationRepository
}

// NewRepositories creates empty in-memory repositories.
func NewRepositories() *Repositories {
	return &Repositories{
		Device:     NewDeviceRepository(),
		Message:    NewMessageRepository(),
		Activation: NewActivationRepository(),
	}
}
