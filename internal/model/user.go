package model

// User 用户表，对应 users
type User struct {
	UserID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Email        string  `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash string  `gorm:"type:varchar(255);not null"                     json:"-"`
	FirstName    string  `gorm:"type:varchar(100);not null"                     json:"first_name"`
	LastName     string  `gorm:"type:varchar(100);not null;default:''"          json:"last_name"`
	Age          *int    `gorm:"type:smallint"                                  json:"age,omitempty"`
	AvatarURL    *string `gorm:"type:varchar(500)"                              json:"avatar_url,omitempty"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }
