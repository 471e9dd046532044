package model

import (
	"time"

	"github.com/google/uuid"
)

// Service is a service offering shown on the site
type Service struct {
	Base
	Title       string `gorm:"type:varchar(255)" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Image       string `gorm:"type:varchar(500)" json:"image"`
}

// Portfolio is a delivered project
type Portfolio struct {
	Base
	Link        string     `gorm:"type:varchar(500)" json:"link" binding:"omitempty,url"`
	Title       string     `gorm:"type:varchar(255);not null" json:"titulo" binding:"required"`
	Company     string     `gorm:"type:varchar(255);not null" json:"company" binding:"required"`
	Content     string     `gorm:"type:text;not null" json:"content" binding:"required"`
	InitialDate *time.Time `json:"initialDate"`
	FinalDate   *time.Time `json:"finalDate"`
	Progress    int        `gorm:"not null" json:"progress" binding:"gte=0,lte=100"`
	Image       string     `gorm:"type:varchar(500);not null" json:"image" binding:"required"`
}

// Partner is a partner logo block
type Partner struct {
	Base
	Title       string `gorm:"type:varchar(255)" json:"title"`
	Image       string `gorm:"type:varchar(500)" json:"imagem"`
	Description string `gorm:"type:text" json:"description"`
	Link        string `gorm:"type:varchar(500)" json:"link"`
}

// Content is a translatable content block
type Content struct {
	Base
	Lang []string `gorm:"type:text;serializer:json" json:"lang"`
}

// ContactForm is a message left through the contact page
type ContactForm struct {
	Base
	Messages []string `gorm:"type:text;serializer:json" json:"mensagem"`
	Type     string   `gorm:"type:varchar(100)" json:"type"`
}

// Client is a customer reference shown on the site
type Client struct {
	Base
	Name  string `gorm:"type:varchar(255)" json:"name"`
	Image string `gorm:"type:varchar(500)" json:"image"`
	Link  string `gorm:"type:varchar(500)" json:"link"`
}

// Chat is a conversation group
type Chat struct {
	Base
	Name   string     `gorm:"type:varchar(255)" json:"name"`
	Code   string     `gorm:"type:varchar(100)" json:"code"`
	Admin  *uuid.UUID `gorm:"type:uuid" json:"admin"`
	Member []string   `gorm:"type:text;serializer:json" json:"member"`
}

// ChatMessage is a single message inside a chat group
type ChatMessage struct {
	Base
	Message   string     `gorm:"type:text" json:"message"`
	Sender    string     `gorm:"type:varchar(255)" json:"sender"`
	Recipient string     `gorm:"type:varchar(255)" json:"recipient"`
	GroupID   *uuid.UUID `gorm:"type:uuid;index" json:"groupId"`
}

// Blog is a published article
type Blog struct {
	Base
	Title               string     `gorm:"type:varchar(255)" json:"title"`
	AlternativeHeadline string     `gorm:"type:varchar(255)" json:"alternativeHeadline"`
	Image               string     `gorm:"type:varchar(500)" json:"image"`
	PublishDate         *time.Time `json:"publishDate"`
	ArticleSection      string     `gorm:"type:varchar(255)" json:"articleSection"`
	ArticleBody         string     `gorm:"type:text" json:"articleBody"`
	Description         string     `gorm:"type:text" json:"description"`
	Slug                string     `gorm:"type:varchar(255);index" json:"slug"`
	URL                 string     `gorm:"type:varchar(500)" json:"url"`
	IsDraft             bool       `json:"isDraft"`
}

// Lang is a translated string
type Lang struct {
	Base
	Language string `gorm:"type:varchar(20)" json:"language"`
	Source   string `gorm:"type:text" json:"source"`
	Content  string `gorm:"type:text" json:"content"`
}

// Enterprise groups departments
type Enterprise struct {
	Base
	Name  string `gorm:"type:varchar(255);uniqueIndex;not null" json:"name" binding:"required"`
	Code  string `gorm:"type:varchar(100);uniqueIndex;not null" json:"code" binding:"required"`
	Email string `gorm:"type:varchar(255)" json:"email" binding:"omitempty,email"`
}

// Department belongs to an enterprise
type Department struct {
	Base
	Name         string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"name" binding:"required"`
	Code         string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"code" binding:"required"`
	EnterpriseID *uuid.UUID `gorm:"type:uuid;index" json:"enterprises"`
	Email        string     `gorm:"type:varchar(255)" json:"email" binding:"omitempty,email"`
	Phone        string     `gorm:"type:varchar(50)" json:"phone"`
	Website      string     `gorm:"type:varchar(255)" json:"website"`
}

// AllModels lists every persisted type for migration
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&UserToken{},
		&Role{},
		&ProjectRoute{},
		&RouteRole{},
		&UserRole{},
		&Service{},
		&Portfolio{},
		&Partner{},
		&Content{},
		&ContactForm{},
		&Client{},
		&Chat{},
		&ChatMessage{},
		&Blog{},
		&Lang{},
		&Enterprise{},
		&Department{},
	}
}
