package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserType values
const (
	UserTypeUser   = 1
	UserTypeAdmin  = 2
	UserTypeClient = 3
)

// Platform partitions which routes a token may be used against
type Platform string

const (
	PlatformAdmin  Platform = "admin"
	PlatformClient Platform = "client"
	PlatformDevice Platform = "device"
)

// Prefix is the URL prefix the platform's routes are mounted under
func (p Platform) Prefix() string {
	switch p {
	case PlatformAdmin:
		return "/admin"
	case PlatformClient:
		return "/client/api/v1"
	case PlatformDevice:
		return "/device/api/v1"
	}
	return ""
}

// Platforms lists every platform in mount order
func Platforms() []Platform {
	return []Platform{PlatformAdmin, PlatformClient, PlatformDevice}
}

// loginAccess lists the platforms each user type may log into
var loginAccess = map[int][]Platform{
	UserTypeUser:   {PlatformDevice, PlatformClient},
	UserTypeAdmin:  {PlatformAdmin, PlatformDevice, PlatformClient},
	UserTypeClient: {PlatformDevice, PlatformClient},
}

// CanLogin reports whether a user type may obtain a token for the platform
func CanLogin(userType int, p Platform) bool {
	for _, allowed := range loginAccess[userType] {
		if allowed == p {
			return true
		}
	}
	return false
}

// User is the principal authenticated by the platform middlewares
type User struct {
	Base
	Username string `gorm:"type:varchar(255);uniqueIndex;not null" json:"username" binding:"required"`
	Email    string `gorm:"type:varchar(255);index" json:"email" binding:"omitempty,email"`
	Password string `gorm:"type:varchar(255);not null" json:"password,omitempty" binding:"required,min=6"`
	Name     string `gorm:"type:varchar(255)" json:"name"`
	Mobile   string `gorm:"type:varchar(50)" json:"mobileNo"`
	UserType int    `gorm:"not null;default:1" json:"userType" binding:"omitempty,oneof=1 2 3"`

	// consecutive failed logins since the last success or lock
	LoginRetryLimit   int        `gorm:"not null;default:0" json:"loginRetryLimit"`
	LoginReactiveTime *time.Time `json:"loginReactiveTime,omitempty"`
}

// LockedUntil reports whether logins are refused at now, and until when
func (u *User) LockedUntil(now time.Time) (time.Time, bool) {
	if u.LoginReactiveTime == nil || !now.Before(*u.LoginReactiveTime) {
		return time.Time{}, false
	}
	return *u.LoginReactiveTime, true
}

// IsPasswordMatch verifies a plaintext password against the stored hash
func (u *User) IsPasswordMatch(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

// HashPassword replaces the plaintext password with its bcrypt hash
func (u *User) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

// MarshalJSON never writes the password hash
func (u User) MarshalJSON() ([]byte, error) {
	type plain User
	out := plain(u)
	out.Password = ""
	return json.Marshal(out)
}

// UserToken records an issued access token so logout can revoke it
type UserToken struct {
	Base
	UserID         uuid.UUID `gorm:"type:uuid;not null;index" json:"userId" binding:"required"`
	Token          string    `gorm:"type:text;not null" json:"token" binding:"required"`
	Platform       Platform  `gorm:"type:varchar(20);not null" json:"platform"`
	ExpiresAt      time.Time `gorm:"not null" json:"tokenExpiredTime"`
	IsTokenExpired bool      `gorm:"not null" json:"isTokenExpired"`
	User           *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
