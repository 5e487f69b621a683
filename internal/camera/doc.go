// Package camera は撮像センサーからのフレーム取得を担う
//
// # 責務
// - フレームソース（Source）の初期化と構成プロファイルの選択
// - フレームバッファの貸出（Lease）と確実な返却
// - ハードウェアパイプラインの「最新フレーム」取得ポリシー
// - 撮像ドライバー（ffmpeg/V4L2、テストパターン、モック）の抽象化
//
// # 使い分け
// このパッケージは以下の場合に使用する：
// - 1リクエストにつき1フレームを取得したい（Source.Acquire / Source.WithLease）
// - 取得したフレームをどの終了経路でも必ず返却したい（Lease.Release）
// - 拡張メモリの有無に応じて解像度・品質・バッファ数を決めたい
//
// # 仕様
//   - 構成はプロセス起動時に一度だけ選択され、以後変更されない
//   - Acquire は完全なフレームが得られるまでブロックする（部分的なバッファは返さない）
//   - Acquire に成功したら Release はちょうど1回呼ばれなければならない
//     返却漏れはバッファプールを枯渇させ、以後の Acquire をすべて停止させる
//   - 複数の呼び出し元がいる場合、Acquire から Release までの区間は直列化される
//
// # 前提要件
//   - ffmpeg ドライバー: ffmpeg と v4l2-utils が必要
//     Ubuntu/Debian: sudo apt install ffmpeg v4l-utils
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
