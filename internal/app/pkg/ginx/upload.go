package ginx

import (
	"io"

	"github.com/gin-gonic/gin"
)

// FormFileOpener 返回上传文件的打开函数，文件句柄由调用方负责关闭
func FormFileOpener(c *gin.Context, field string) (func() (io.ReadCloser, error), error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}
	return func() (io.ReadCloser, error) {
		return fh.Open()
	}, nil
}
