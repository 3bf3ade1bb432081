package state

// Shared rooms with fixed names.
const (
	RoomDoctors         = "doctors"
	RoomResearchUpdates = "research:updates"
)

// PersonalRoom is the room automatically owned by and named after a single
// user, used for direct addressing.
func PersonalRoom(userID string) string {
	return "user:" + userID
}

// PatientRoom is the patient's own data room; only the patient themselves may
// join it.
func PatientRoom(patientID string) string {
	return "patient:" + patientID
}

// MonitoringRoom is the channel doctors use to follow a patient's activity.
func MonitoringRoom(patientID string) string {
	return "patient:" + patientID + ":monitoring"
}

// ProofRoom carries progress and terminal events for one proof job.
func ProofRoom(jobID string) string {
	return "proof:" + jobID
}

// VerificationRoom carries incoming verification requests for a user.
func VerificationRoom(userID string) string {
	return "verification:" + userID
}
