package i18n

// Message keys.
const (
	KeyCameraPermissionDenied = "scanner.errors.permission"
	KeyCameraNotFound         = "scanner.errors.noCamera"
	KeyCameraInUse            = "scanner.errors.cameraInUse"
	KeyOCREngineError         = "scanner.ocr.error"
	KeyNoCodeFound            = "scanner.ocr.noCodeFound"
	KeyInvalidManualInput     = "scanner.ocr.invalidManualInput"
	KeyInvalidImage           = "scanner.ocr.invalidImage"

	KeyInstructions = "scanner.ocr.instructions"
	KeyAlignCode    = "scanner.ocr.alignCode"
	KeyProcessing   = "scanner.ocr.processing"
	KeyDetectedText = "scanner.ocr.detectedText"
	KeyRetry        = "scanner.ocr.retry"
	KeyManualEntry  = "scanner.ocr.manualEntry"
	KeyCanceled     = "scanner.ocr.canceled"

	KeyFound         = "scanner.found.title"
	KeyNotFound      = "scanner.notFound.title"
	KeyNotFoundHint  = "scanner.notFound.message"
	KeyScannedCode   = "scanner.notFound.scannedCode"
	KeyCarAdded      = "scanner.addCar.success"
	KeyImportedCount = "admin.import.success"
)

// english is the reference catalog. Every key must be present here.
var english = map[string]string{
	KeyCameraPermissionDenied: "Camera permission denied. Please allow camera access in your settings.",
	KeyCameraNotFound:         "No camera found on this device.",
	KeyCameraInUse:            "Camera is already in use by another application.",
	KeyOCREngineError:         "Failed to process image.",
	KeyNoCodeFound:            "No product code found. Please try again.",
	KeyInvalidManualInput:     "Code not recognized. It will be searched as typed.",
	KeyInvalidImage:           "The file is not a supported image.",

	KeyInstructions: "Photograph the red product code on the package (e.g., JBC17-N521 21A)",
	KeyAlignCode:    "Align product code in frame",
	KeyProcessing:   "Processing image...",
	KeyDetectedText: "Detected Text:",
	KeyRetry:        "Try Again",
	KeyManualEntry:  "Or enter the code manually:",
	KeyCanceled:     "Scan canceled.",

	KeyFound:         "I ALREADY HAVE THIS CAR!",
	KeyNotFound:      "I DON'T HAVE THIS CAR",
	KeyNotFoundHint:  "This car is not in your collection. You can buy it!",
	KeyScannedCode:   "Scanned code: %s",
	KeyCarAdded:      "Car added successfully!",
	KeyImportedCount: "%d cars imported.",
}

var portuguese = map[string]string{
	KeyCameraPermissionDenied: "Permissão da câmara negada. Permita o acesso à câmara nas definições.",
	KeyCameraNotFound:         "Nenhuma câmara encontrada neste dispositivo.",
	KeyCameraInUse:            "A câmara já está a ser usada por outra aplicação.",
	KeyOCREngineError:         "Falha ao processar a imagem.",
	KeyNoCodeFound:            "Nenhum código de produto encontrado. Tente novamente.",
	KeyInvalidManualInput:     "Código não reconhecido. Será pesquisado tal como foi escrito.",
	KeyInvalidImage:           "O ficheiro não é uma imagem suportada.",

	KeyInstructions: "Fotografe o código vermelho na embalagem (ex. JBC17-N521 21A)",
	KeyAlignCode:    "Alinhe o código no enquadramento",
	KeyProcessing:   "A processar a imagem...",
	KeyDetectedText: "Texto detetado:",
	KeyRetry:        "Tentar Novamente",
	KeyManualEntry:  "Ou digite o código manualmente:",
	KeyCanceled:     "Leitura cancelada.",

	KeyFound:         "JÁ TENHO ESTE CARRO!",
	KeyNotFound:      "NÃO TENHO ESTE CARRO",
	KeyNotFoundHint:  "Este carro não está na sua colecção. Pode comprar!",
	KeyScannedCode:   "Código escaneado: %s",
	KeyCarAdded:      "Carro adicionado com sucesso!",
	KeyImportedCount: "%d carros importados.",
}
