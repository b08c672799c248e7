package rag

import "policy-rag/internal/models"

// Memory keeps the last size conversation turns, oldest first
type Memory struct {
	size  int
	turns []models.Turn
}

func NewMemory(size int) *Memory {
	if size < 1 {
		size = 1
	}
	return &Memory{size: size, turns: make([]models.Turn, 0, size)}
}

func (m *Memory) Add(user, bot string) {
	m.turns = append(m.turns, models.Turn{User: user, Bot: bot})
	if len(m.turns) > m.size {
		m.turns = m.turns[len(m.turns)-m.size:]
	}
}

// Last returns the most recent turn
func (m *Memory) Last() (models.Turn, bool) {
	if len(m.turns) == 0 {
		return models.Turn{}, false
	}
	return m.turns[len(m.turns)-1], true
}

func (m *Memory) Turns() []models.Turn {
	turns := make([]models.Turn, len(m.turns))
	copy(turns, m.turns)
	return turns
}

func (m *Memory) Len() int {
	return len(m.turns)
}
