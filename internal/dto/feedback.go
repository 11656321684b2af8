package dto

// SubmitFeedbackRequest is the contact form payload. Name and email default to the session's.
type SubmitFeedbackRequest struct {
	Name    string `json:"name" validate:"omitempty,max=120"`
	Email   string `json:"email" validate:"omitempty,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
	Rating  *int   `json:"rating" validate:"omitempty,min=1,max=5"`
}

// UpdateFeedbackStatusRequest moves a feedback entry to another triage state.
type UpdateFeedbackStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new reviewed resolved"`
}
