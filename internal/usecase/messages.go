package usecase

import (
	"fmt"
	"time"

	"github.com/ErlanBelekov/answerkey-relay/internal/domain"
)

const (
	msgExample       = "Örnek kullanım: /cevap -sınav ÖZDEBİR -tür TYT -dönem 2024-2025"
	msgInvalidFormat = "Geçersiz format. Örnek: /cevap -sınav Özdebir -tür TYT -dönem 2024-2025"
	msgChooseExam    = "Lütfen bir sınav seçiniz:"
	msgNoResults     = "Belirttiğiniz kriterlere uygun sonuç bulunamadı."
	msgNotFound      = "Seçilen sınav bulunamadı."
	msgNoSession     = "Aktif bir arama bulunamadı. Lütfen /cevap ile yeni bir arama yapınız."
	msgFetchFailed   = "Cevap anahtarı indirilemedi. Lütfen tekrar deneyin."
	msgInternal      = "Bir hata oluştu. Lütfen daha sonra tekrar deneyin."
)

func startText(userID string) string {
	return fmt.Sprintf("Merhabalar (%s). Botu verimli kullanabilmek için /aciklama kısmını okuyunuz.\n\n%s", userID, msgExample)
}

func helpText(limit int) string {
	return "Kullanım mantığı:\n\n" +
		"-sınav: Yayın evi (Örn: ÖZDEBİR, BİLGİ SARMALI)\n" +
		"-tür: TYT, AYT, YDT, LGS...\n" +
		"-dönem: 2018-2019, 2024-2025 gibi\n\n" +
		"Bayraklar bu sırayla yazılmalıdır; en az biri zorunludur.\n\n" +
		msgExample + "\n" +
		fmt.Sprintf("Günlük indirme limitiniz: %d dosya", limit)
}

func quotaExceededText(e *domain.QuotaExceededError) string {
	left := e.ResetIn.Truncate(time.Minute)
	hours := int(left / time.Hour)
	minutes := int((left % time.Hour) / time.Minute)
	return fmt.Sprintf("Günlük indirme limitiniz dolmuştur (%d/%d).\nYeni indirme hakkı için kalan süre: %d saat %d dakika",
		e.Limit, e.Limit, hours, minutes)
}

func captionText(e domain.Entry, remaining, limit int) string {
	return fmt.Sprintf("(%s) %s\n\nKalan indirme hakkı: %d/%d", e.Period, e.ExamName, remaining, limit)
}
