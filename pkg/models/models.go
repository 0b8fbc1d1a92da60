package models

import (
	"fmt"
	"time"
)

// Role is the closed set of user roles. Superuser is a separate flag on User.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleUser, RoleModerator, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// users table
type User struct {
	ID               int64     `json:"-"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Bio              string    `json:"bio"`
	Role             Role      `json:"role"`
	IsSuperuser      bool      `json:"-"`
	PasswordHash     string    `json:"-"`
	ConfirmationCode string    `json:"-"`
	DateJoined       time.Time `json:"-"`
}

// categories table
type Category struct {
	ID   int64  `json:"-"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// genres table, same shape as categories
type Genre Category

// titles table. Rating is derived from reviews on every read and never stored.
type Title struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Year        int       `json:"year"`
	Rating      *float64  `json:"rating"`
	Description *string   `json:"description"`
	Genre       []Genre   `json:"genre"`
	Category    *Category `json:"category"`
}

// reviews table; Title and Author carry the title name and author username.
type Review struct {
	ID       int64     `json:"id"`
	TitleID  int64     `json:"-"`
	Title    string    `json:"title"`
	AuthorID int64     `json:"-"`
	Author   string    `json:"author"`
	Text     string    `json:"text"`
	Score    int       `json:"score"`
	PubDate  time.Time `json:"pub_date"`
}

func (r Review) OwnerID() int64 { return r.AuthorID }

// comments table
type Comment struct {
	ID       int64     `json:"id"`
	ReviewID int64     `json:"-"`
	AuthorID int64     `json:"-"`
	Author   string    `json:"author"`
	Text     string    `json:"text"`
	PubDate  time.Time `json:"pub_date"`
}

func (c Comment) OwnerID() int64 { return c.AuthorID }
