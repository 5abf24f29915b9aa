package model

// Setting keys for the exam gate, stored in app_settings.
const (
	SettingEntryPassword = "entry_password"
	SettingQuitPassword  = "quit_password"
)

// ExamGateSettings holds the optional entry and quit secrets. An empty value
// means the corresponding gate passes automatically.
type ExamGateSettings struct {
	EntryPassword string `json:"entry_password"`
	QuitPassword  string `json:"quit_password"`
}

// UpdateGateSettingsRequest is the admin payload for gate secrets.
type UpdateGateSettingsRequest struct {
	EntryPassword string `json:"entry_password" binding:"max=128"`
	QuitPassword  string `json:"quit_password" binding:"max=128"`
}

// EntryGateRequest is the participant payload for the entry password.
type EntryGateRequest struct {
	Password string `json:"password" binding:"max=128"`
}
