package transport

type EnquiryRequest struct {
	Kind     string   `json:"kind"      validate:"omitempty,oneof=contact consultation"`
	Name     string   `json:"name"      validate:"required,max=120"`
	Email    string   `json:"email"     validate:"required,email"`
	Phone    string   `json:"phone"     validate:"omitempty,max=20"`
	Subject  string   `json:"subject"   validate:"max=200"`
	Message  string   `json:"message"   validate:"required,max=5000"`
	SkinType string   `json:"skin_type" validate:"omitempty,oneof=normal dry oily combination sensitive"`
	Concerns []string `json:"concerns"  validate:"max=10,dive,required,max=60"`
}
