package models

// WorkerJWT is the claim set of a job submission token.
type WorkerJWT struct {
	Issuer    string     `json:"iss"` // optional
	Subject   string     `json:"sub"`
	IssuedAt  int64      `json:"iat"`
	ExpiresAt int64      `json:"exp"`
	Job       JobRequest `json:"job"`
}

// ServeClaims authorizes one download from the direct serve backend.
type ServeClaims struct {
	Bucket    string `json:"bkt"`
	Key       string `json:"key"`
	ExpiresAt int64  `json:"exp"`
}
