package db

import "time"

type alertModel struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Sender    string    `gorm:"column:telefone;type:text;not null;index:idx_alertas_telefone_criado_em,priority:1"`
	Message   string    `gorm:"column:mensagem;type:text;not null"`
	CreatedAt time.Time `gorm:"column:criado_em;not null;default:CURRENT_TIMESTAMP;autoCreateTime;index;index:idx_alertas_telefone_criado_em,priority:2"`
	Status    string    `gorm:"column:status;type:text;not null;default:ativo"`
}

func (alertModel) TableName() string { return "alertas" }
