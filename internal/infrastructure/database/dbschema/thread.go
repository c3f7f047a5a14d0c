package dbschema

import (
	"time"

	domainthread "w9-search/internal/domain/thread"
	"w9-search/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(Thread{}, Message{})
}

type Thread struct {
	ID        uint      `gorm:"primaryKey"`
	PublicID  string    `gorm:"size:64;not null;uniqueIndex"`
	Title     string    `gorm:"size:512"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Thread) TableName() string {
	return "engine.threads"
}

type Message struct {
	ID        uint      `gorm:"primaryKey"`
	ThreadID  uint      `gorm:"not null;index"`
	Role      string    `gorm:"size:32;not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Message) TableName() string {
	return "engine.messages"
}

func NewSchemaThread(t *domainthread.Thread) *Thread {
	return &Thread{
		ID:       t.ID,
		PublicID: t.PublicID,
		Title:    t.Title,
	}
}

func (t *Thread) EtoD() *domainthread.Thread {
	return &domainthread.Thread{
		ID:        t.ID,
		PublicID:  t.PublicID,
		Title:     t.Title,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func NewSchemaMessage(m *domainthread.Message) *Message {
	return &Message{
		ID:       m.ID,
		ThreadID: m.ThreadID,
		Role:     string(m.Role),
		Content:  m.Content,
	}
}

func (m *Message) EtoD() *domainthread.Message {
	return &domainthread.Message{
		ID:        m.ID,
		ThreadID:  m.ThreadID,
		Role:      domainthread.Role(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}
