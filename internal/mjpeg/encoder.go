// Package mjpeg はフレームを HTTP のワイヤ表現に変換する
//
// 単体のJPEGレスポンスと、multipart/x-mixed-replace ストリームの1パートの2種類がある。
// ビューアの多くは汎用のMIMEパーサーではなくこの形式を文字どおりに解釈するため、
// 境界トークンとヘッダー名は変更してはならない。
package mjpeg

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// Boundary はストリームのパート境界トークン
const Boundary = "frame"

const (
	// StreamContentType はストリームの開始レスポンスで宣言するコンテンツタイプ
	StreamContentType = "multipart/x-mixed-replace; boundary=" + Boundary

	// JPEGContentType は単体フレームと各パートのコンテンツタイプ
	JPEGContentType = "image/jpeg"

	// CaptureFailureMessage はキャプチャ失敗時のレスポンス本文
	CaptureFailureMessage = "Camera capture failed"

	singleCacheControl = "no-cache, no-store, must-revalidate"
	streamCacheControl = "no-cache"
)

// Buffer はエンコード対象のフレームバッファ
// camera.Lease が満たす
type Buffer interface {
	Bytes() []byte
}

// SetCORS はすべてのレスポンスに付けるクロスオリジン許可ヘッダーを設定する
func SetCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
}

// WriteSingle は1枚のJPEGを完結したレスポンスとして書き込む
func WriteSingle(w http.ResponseWriter, buf Buffer) error {
	data := buf.Bytes()

	h := w.Header()
	h.Set("Content-Type", JPEGContentType)
	h.Set("Content-Length", strconv.Itoa(len(data)))
	h.Set("Cache-Control", singleCacheControl)
	SetCORS(h)
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("JPEGの書き込みに失敗: %w", err)
	}
	return nil
}

// WriteCaptureFailure はキャプチャ失敗の 500 レスポンスを書き込む
func WriteCaptureFailure(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", singleCacheControl)
	SetCORS(h)
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = io.WriteString(w, CaptureFailureMessage)
}

// WriteStreamHeader はストリームの開始レスポンスを書き込む
// 長さは不定のため Content-Length は付けない
func WriteStreamHeader(w http.ResponseWriter) error {
	h := w.Header()
	h.Set("Content-Type", StreamContentType)
	h.Set("Cache-Control", streamCacheControl)
	h.Set("Connection", "keep-alive")
	SetCORS(h)
	w.WriteHeader(http.StatusOK)

	return flush(w)
}

// WriteStreamFrame はストリームの1パートを書き込む
//
//	--frame\r\n
//	Content-Type: image/jpeg\r\n
//	Content-Length: <n>\r\n
//	\r\n
//	<n bytes>\r\n
func WriteStreamFrame(w io.Writer, buf Buffer) error {
	data := buf.Bytes()

	header := "--" + Boundary + "\r\n" +
		"Content-Type: " + JPEGContentType + "\r\n" +
		"Content-Length: " + strconv.Itoa(len(data)) + "\r\n\r\n"

	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("パートヘッダーの書き込みに失敗: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("フレームの書き込みに失敗: %w", err)
	}
	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return fmt.Errorf("パート終端の書き込みに失敗: %w", err)
	}

	return flush(w)
}

// flush はバッファされたデータをクライアントへ送る
func flush(w io.Writer) error {
	switch f := w.(type) {
	case interface{ FlushError() error }:
		return f.FlushError()
	case http.Flusher:
		f.Flush()
	}
	return nil
}
