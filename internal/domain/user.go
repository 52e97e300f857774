package domain

import "time"

type User struct {
	UserID              string     `json:"id" dynamodbav:"user_id"`
	Username            string     `json:"username" dynamodbav:"username"`
	Email               string     `json:"email" dynamodbav:"email"`
	Mobile              string     `json:"mobile,omitempty" dynamodbav:"mobile"`
	PasswordHash        string     `json:"-" dynamodbav:"password_hash"`
	Role                string     `json:"role" dynamodbav:"role"`
	FirstName           string     `json:"first_name" dynamodbav:"first_name"`
	LastName            string     `json:"last_name" dynamodbav:"last_name"`
	SecondFactorEnabled bool       `json:"second_factor_enabled" dynamodbav:"second_factor_enabled"`
	Enable              bool       `json:"enable" dynamodbav:"enable"`
	DeletedAt           *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at"`
	CreatedAt           time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt           time.Time  `json:"updated" dynamodbav:"updated_at"`
}

type CreateUserRequest struct {
	Username            string `json:"username" validate:"required"`
	Password            string `json:"password" validate:"required,min=8,max=72"`
	Email               string `json:"email" validate:"required,email"`
	Mobile              string `json:"mobile"`
	FirstName           string `json:"first_name"`
	LastName            string `json:"last_name"`
	SecondFactorEnabled bool   `json:"second_factor_enabled"`
}

type UpdateUserRequest struct {
	Username            *string `json:"username"`
	Email               *string `json:"email" validate:"omitempty,email"`
	Mobile              *string `json:"mobile"`
	FirstName           *string `json:"first_name"`
	LastName            *string `json:"last_name"`
	SecondFactorEnabled *bool   `json:"second_factor_enabled"`
	Role                *string `json:"role"`
	Enable              *bool   `json:"enable"`
}
