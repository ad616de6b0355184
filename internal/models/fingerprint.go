package models

// Слоты пальцев, поддерживаемые устройством захвата.
const (
	FingerPrimary   = 1
	FingerSecondary = 2
)

// StoredTemplate зашифрованный шаблон отпечатка, как он хранится в базе.
// Открытый текст существует только в памяти во время шифрования и расшифровки.
type StoredTemplate struct {
	UserID     int64
	FullName   string
	Finger     int
	Ciphertext []byte
}

// TemplateRecord строка выгрузки шаблонов для офлайн-сопоставления на устройстве.
// Поля fingerprint1/fingerprint2 содержат расшифрованные шаблоны в base64.
type TemplateRecord struct {
	ID           int64  `json:"id"`
	FullName     string `json:"full_name"`
	Fingerprint1 string `json:"fingerprint1"`
	Fingerprint2 string `json:"fingerprint2"`
}
