package mailparse

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

// Message 表示一封结构化解析后的邮件。
//
// 只保留入库流水线需要的部分：寻址头、主题和解码后的 HTML 正文片段。
// HTMLParts 保持字节形式，内容合法性（UTF-8）由构建方校验。
type Message struct {
	Subject   string
	From      HeaderValue
	To        HeaderValue
	HTMLParts [][]byte
}

// Parse 解析原始邮件字节流。
func Parse(raw []byte) (*Message, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse mail: %w", err)
	}

	parsed := &Message{
		Subject: decodeWords(msg.Header.Get("Subject")),
		From:    ParseHeaderValue(msg.Header.Get("From")),
		To:      ParseHeaderValue(msg.Header.Get("To")),
	}

	contentType := msg.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// 没有 Content-Type 或解析失败，按纯文本处理，没有 HTML 正文
		return parsed, nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("multipart message without boundary")
		}
		mr := multipart.NewReader(msg.Body, boundary)
		if err := collectHTMLParts(mr, parsed); err != nil {
			return nil, fmt.Errorf("parse multipart: %w", err)
		}
		return parsed, nil
	}

	if strings.HasPrefix(mediaType, "text/html") {
		body, err := decodeBody(msg.Body, msg.Header.Get("Content-Transfer-Encoding"), params["charset"])
		if err != nil {
			return nil, fmt.Errorf("decode body: %w", err)
		}
		parsed.HTMLParts = append(parsed.HTMLParts, body)
	}

	return parsed, nil
}

// collectHTMLParts 递归遍历多部分正文，收集所有 text/html 片段。
func collectHTMLParts(mr *multipart.Reader, parsed *Message) error {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		mediaType, params, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			mediaType = "text/plain"
		}

		if strings.HasPrefix(mediaType, "multipart/") {
			if boundary := params["boundary"]; boundary != "" {
				nested := multipart.NewReader(part, boundary)
				if err := collectHTMLParts(nested, parsed); err != nil {
					return err
				}
			}
			continue
		}

		if !strings.HasPrefix(mediaType, "text/html") {
			continue
		}

		// 附件形式的 HTML 不算正文
		if disposition := part.Header.Get("Content-Disposition"); disposition != "" {
			if dispType, _, _ := mime.ParseMediaType(disposition); dispType == "attachment" {
				continue
			}
		}

		body, err := decodeBody(part, part.Header.Get("Content-Transfer-Encoding"), params["charset"])
		if err != nil {
			continue
		}
		parsed.HTMLParts = append(parsed.HTMLParts, body)
	}
	return nil
}

// decodeBody 按传输编码与字符集解码正文。
func decodeBody(reader io.Reader, transferEncoding, charset string) ([]byte, error) {
	transferEncoding = strings.ToLower(strings.TrimSpace(transferEncoding))

	var decoded io.Reader
	switch transferEncoding {
	case "base64":
		decoded = base64.NewDecoder(base64.StdEncoding, reader)
	case "quoted-printable":
		decoded = quotedprintable.NewReader(reader)
	default:
		// 7bit/8bit/binary 以及未知编码直接读取
		decoded = reader
	}

	body, err := io.ReadAll(decoded)
	if err != nil {
		return nil, err
	}

	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset != "" && charset != "utf-8" && charset != "us-ascii" {
		if enc := charsetEncoding(charset); enc != nil {
			converted, _, err := transform.Bytes(enc.NewDecoder(), body)
			if err == nil {
				body = converted
			}
		}
	}

	return body, nil
}

// charsetEncoding 根据字符集名称返回解码器。
func charsetEncoding(charset string) encoding.Encoding {
	switch charset {
	case "gb2312", "gbk", "gb18030":
		return simplifiedchinese.GBK
	case "big5":
		return traditionalchinese.Big5
	case "iso-2022-jp", "shift_jis", "euc-jp":
		return japanese.ShiftJIS
	case "euc-kr", "ks_c_5601-1987":
		return korean.EUCKR
	default:
		return nil
	}
}
