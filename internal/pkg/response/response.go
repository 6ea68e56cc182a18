package response

import "github.com/gin-gonic/gin"

// Success envia o corpo de sucesso padrão da API.
func Success(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// Error envia o erro como mensagem, sem vazar detalhes internos ao cliente
// quando err for nil.
func Error(c *gin.Context, status int, err error) {
	msg := "erro interno"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, gin.H{"success": false, "error": msg})
}

func ErrorWithMessage(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}
