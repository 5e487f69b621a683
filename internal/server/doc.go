// Package server は、3つの機能（単体キャプチャ・MJPEGストリーム・状態）をHTTPで提供します。
//
// 責務:
//   - ルーティングとサーバーのライフサイクル（起動・シグナル待機・グレースフルシャットダウン）
//   - 接続ごとのハンドラー（単体キャプチャ、ストリーミングループ）
//   - カメラを使う処理の同時実行数の制限
//   - アクセスログ、メトリクス、統計ログの定期出力
//
// 仕様:
//   - ルーターは gin、ハンドラーは OpenAPI から生成した ServerInterface を実装する
//   - /capture と /stream はワーカー枠を1つ保持したまま処理する（既定で同時に1接続）
//   - /status はフレームソースに触れない
//   - 未登録のパスやメソッドには 404 "Not found" を返す
//   - ストリームはフレームの前後でクライアントの生存を確認し、切断から1フレーム周期以内に終了する
package server
