package txmanager

import (
	"errors"
	"fmt"
	"sync"

	"golang_saga/component"
)

type registerCenter struct {
	//启动后基本只读
	mux          sync.RWMutex
	participants map[string]component.Participant
}

func newRegisterCenter() *registerCenter {
	return &registerCenter{
		participants: make(map[string]component.Participant),
	}
}

func (r *registerCenter) register(participant component.Participant) error {
	r.mux.Lock()
	defer r.mux.Unlock()

	if participant.ID() == "" {
		return errors.New("empty participant id")
	}
	if _, ok := r.participants[participant.ID()]; ok {
		return fmt.Errorf("repeat register participant: %s", participant.ID())
	}

	r.participants[participant.ID()] = participant
	return nil
}

// getParticipants 按顺序取参与方, 遇到第一个未注册的名字即报错
func (r *registerCenter) getParticipants(names ...string) ([]component.Participant, error) {
	participants := make([]component.Participant, 0, len(names))

	r.mux.RLock()
	defer r.mux.RUnlock()
	for _, name := range names {
		p, ok := r.participants[name]
		if !ok {
			return nil, validationErrorf("unknown service: %s", name)
		}
		participants = append(participants, p)
	}
	return participants, nil
}

func (r *registerCenter) names() []string {
	r.mux.RLock()
	defer r.mux.RUnlock()
	names := make([]string, 0, len(r.participants))
	for name := range r.participants {
		names = append(names, name)
	}
	return names
}
